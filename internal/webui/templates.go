package webui

import (
	"html/template"
	"strconv"
)

// Theme is the overlay copy and colour for a countdown tier
type Theme struct {
	Class   string
	Icon    string
	Title   string
	Message string
}

var themes = map[string]Theme{
	"stale":    {"tier-stale", "📡", "Location signal lost", "We haven't received a location update recently. Please check that location sharing is on."},
	"exceeded": {"tier-exceeded", "⛔", "Time limit exceeded", "You have been outside the venue longer than allowed. Please return now."},
	"critical": {"tier-critical", "⏰", "Almost out of time", "Your time outside the venue is nearly used up."},
	"warning":  {"tier-warning", "⚠️", "Time outside is running", "You are outside the venue. Keep an eye on the remaining time."},
	"nominal":  {"tier-nominal", "📍", "You are outside the venue", "The timer is counting your time away from the event."},
}

// ThemeFor returns the theme for tier, falling back to nominal
func ThemeFor(tier string) Theme {
	if t, ok := themes[tier]; ok {
		return t
	}
	return themes["nominal"]
}

// Templates contains all HTML templates for the web UI
var Templates = template.Must(template.New("").Funcs(template.FuncMap{
	"levelClass": func(level string) string {
		switch level {
		case "error", "fatal", "panic":
			return "log-error"
		case "warn":
			return "log-warn"
		case "debug", "trace":
			return "log-debug"
		default:
			return "log-info"
		}
	},
	"alertIcon": func(typ string) string {
		switch typ {
		case "exceeded_limit":
			return "🔴"
		case "warning":
			return "⚠️"
		case "returned":
			return "🟢"
		default:
			return "ℹ️"
		}
	},
	"theme": ThemeFor,
	"badge": func(n int) string {
		if n > 99 {
			return "99+"
		}
		return strconv.Itoa(n)
	},
}).Parse(`
{{define "head"}}
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <link href="https://fonts.googleapis.com/css2?family=JetBrains+Mono:wght@400;500&family=Outfit:wght@400;500;600;700&display=swap" rel="stylesheet">
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #e6edf3;
            --text-secondary: #8b949e;
            --text-muted: #6e7681;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-orange: #db6d28;
            --accent-yellow: #d29922;
            --accent-blue: #58a6ff;
            --accent-grey: #6e7681;
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: 'Outfit', -apple-system, BlinkMacSystemFont, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
            min-height: 100vh;
        }

        .mono { font-family: 'JetBrains Mono', monospace; }
    </style>
{{end}}

{{define "base"}}
<!DOCTYPE html>
<html lang="en">
<head>
    <title>EventConnect</title>
    {{template "head" .}}
    <style>
        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 1rem 2rem;
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
        }

        .logo { font-weight: 700; font-size: 1.25rem; }
        .logo span { color: var(--text-muted); font-weight: 400; font-size: 0.85rem; }

        .bell { position: relative; cursor: pointer; font-size: 1.4rem; }
        .bell .badge {
            position: absolute;
            top: -0.4rem;
            right: -0.7rem;
            min-width: 1.3rem;
            padding: 0 0.3rem;
            border-radius: 999px;
            background: var(--accent-red);
            color: #fff;
            font-size: 0.7rem;
            text-align: center;
        }

        .dropdown {
            display: none;
            position: absolute;
            right: 2rem;
            top: 3.5rem;
            width: 360px;
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            overflow: hidden;
        }
        .dropdown.open { display: block; }
        .dropdown h3 { padding: 0.75rem 1rem; border-bottom: 1px solid var(--border-color); font-size: 0.95rem; }

        .alert-item { display: flex; gap: 0.75rem; padding: 0.75rem 1rem; border-bottom: 1px solid var(--border-color); }
        .alert-item:last-child { border-bottom: none; }
        .alert-item h4 { font-size: 0.9rem; font-weight: 600; }
        .alert-item p { font-size: 0.8rem; color: var(--text-secondary); }
        .alert-item time { font-size: 0.75rem; color: var(--text-muted); }

        .empty-state { padding: 2rem 1rem; text-align: center; color: var(--text-muted); }

        .container { max-width: 1100px; margin: 0 auto; padding: 2rem; }

        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 1rem 1.25rem;
            margin-bottom: 1.5rem;
        }
        .card h2 { font-size: 1rem; margin-bottom: 0.75rem; }
        .card a { color: var(--accent-blue); margin-right: 1rem; }

        .log-entry { display: flex; gap: 0.75rem; font-size: 0.8rem; padding: 0.15rem 0; }
        .log-time { color: var(--text-muted); }
        .log-level { width: 3rem; text-transform: uppercase; }
        .log-error .log-level { color: var(--accent-red); }
        .log-warn .log-level { color: var(--accent-yellow); }
        .log-info .log-level { color: var(--accent-blue); }
        .log-debug .log-level { color: var(--text-muted); }
    </style>
</head>
<body>
    <header>
        <div class="logo">EventConnect <span class="mono">{{.Version}}</span></div>
        <div class="bell" onclick="document.getElementById('alerts').classList.toggle('open')">
            🔔{{if gt .UnreadCount 0}}<span class="badge">{{badge .UnreadCount}}</span>{{end}}
        </div>
    </header>

    <div class="dropdown" id="alerts">
        <h3>Alerts</h3>
        {{if .Items}}
        {{range .Items}}
        <div class="alert-item">
            <div>{{alertIcon (printf "%s" .Type)}}</div>
            <div>
                <h4>{{.ParticipantName}}</h4>
                <p>{{.EventTitle}}</p>
                <time>{{.Received}}</time>
            </div>
        </div>
        {{end}}
        {{else}}
        <div class="empty-state">No alerts available</div>
        {{end}}
    </div>

    <div class="container">
        <div class="card">
            <h2>Export</h2>
            <a href="/api/alerts/export?format=csv">Download CSV</a>
            <a href="/api/alerts/export?format=xlsx">Download Excel</a>
            {{if not .UpdatedAt.IsZero}}<p class="mono" style="color: var(--text-muted); font-size: 0.8rem;">Updated {{.UpdatedAt.Format "15:04:05"}}</p>{{end}}
        </div>

        <div class="card">
            <h2>Recent logs</h2>
            {{range .Logs}}
            <div class="log-entry mono {{levelClass .Level}}">
                <span class="log-time">{{.Timestamp.Format "15:04:05"}}</span>
                <span class="log-level">{{.Level}}</span>
                <span class="log-message">{{.Message}}</span>
            </div>
            {{end}}
        </div>
    </div>

    <script>
        setTimeout(function () { window.location.reload(); }, 30000);
    </script>
</body>
</html>
{{end}}

{{define "overlay"}}
<!DOCTYPE html>
<html lang="en">
<head>
    <title>Time outside - EventConnect</title>
    {{template "head" .}}
    <style>
        .overlay {
            position: fixed;
            inset: auto 1rem 1rem 1rem;
            padding: 1.25rem;
            border-radius: 12px;
            border: 1px solid var(--border-color);
            background: var(--bg-secondary);
        }
        .overlay h2 { font-size: 1.1rem; }
        .overlay p { color: var(--text-secondary); font-size: 0.9rem; }
        .countdown { font-size: 2.5rem; font-weight: 600; margin: 0.5rem 0; }
        .progress { height: 6px; border-radius: 3px; background: var(--bg-tertiary); overflow: hidden; }
        .progress div { height: 100%; }
        .dismiss { margin-top: 1rem; background: none; border: 1px solid var(--border-color); color: var(--text-primary); padding: 0.4rem 1rem; border-radius: 6px; }

        .tier-stale { border-color: var(--accent-grey); }
        .tier-stale .progress div { background: var(--accent-grey); }
        .tier-exceeded { border-color: var(--accent-red); }
        .tier-exceeded .progress div { background: var(--accent-red); }
        .tier-critical { border-color: var(--accent-orange); }
        .tier-critical .progress div { background: var(--accent-orange); }
        .tier-warning { border-color: var(--accent-yellow); }
        .tier-warning .progress div { background: var(--accent-yellow); }
        .tier-nominal { border-color: var(--accent-blue); }
        .tier-nominal .progress div { background: var(--accent-blue); }
    </style>
</head>
<body>
    {{if eq (printf "%s" .View.Visibility) "visible"}}
    {{$t := theme (printf "%s" .View.Tier)}}
    <div class="overlay {{$t.Class}}">
        <h2>{{$t.Icon}} {{$t.Title}}</h2>
        <p>{{.View.Snapshot.EventTitle}}</p>
        <div class="countdown mono">{{.View.Countdown.Minutes}}:{{printf "%02d" .View.Countdown.Seconds}}</div>
        <div class="progress"><div style="width: {{printf "%.0f" .Progress}}%"></div></div>
        <p>{{$t.Message}}</p>
        <form method="post" action="/api/participants/{{.View.ParticipantID}}/timer/dismiss">
            <button class="dismiss" type="submit">Dismiss</button>
        </form>
    </div>
    {{end}}

    <script>
        setTimeout(function () { window.location.reload(); }, 1000);
    </script>
</body>
</html>
{{end}}
`))

