package health

import (
	"bytes"
	"encoding/json"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"dep": func(d DepStatus) string {
		if d.Status == "connected" || d.Status == "reachable" {
			return "ok"
		}
		return "err"
	},
	"ping": func(d DepStatus) interface{} {
		if d.PingMs == nil {
			return "?"
		}
		return *d.PingMs
	},
	"last": func(v interface{}, key string) string {
		if m, ok := v.(map[string]interface{}); ok {
			if s, ok := m[key].(string); ok {
				return s
			}
		}
		return "-"
	},
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <title>DaloaMarket · État de l'API</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    :root { --orange: #FF7F00; --green: #009E60; --ink: #1f2937; --muted: #6b7280; --bg: #fafaf7; }
    * { box-sizing: border-box; }
    body { margin: 0; background: var(--bg); color: var(--ink); font-family: system-ui, -apple-system, sans-serif; }
    main { max-width: 980px; margin: 40px auto; padding: 0 20px; }
    header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 4px solid var(--orange); padding-bottom: 12px; }
    header h1 { margin: 0; font-size: 26px; }
    header h1 span { color: var(--green); }
    #clock { color: var(--muted); font-weight: 600; }
    .headline { font-size: 36px; font-weight: 800; margin: 28px 0 6px; }
    .headline.ok { color: var(--green); }
    .headline.issue { color: #dc2626; }
    .cards { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; margin-top: 24px; }
    .card { background: #fff; border-radius: 14px; padding: 22px; box-shadow: 0 6px 24px rgba(0,0,0,0.06); }
    .card h2 { margin: 0 0 14px; font-size: 12px; text-transform: uppercase; letter-spacing: 1.5px; color: var(--muted); }
    .big { font-size: 34px; font-weight: 800; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f1f1f1; font-size: 14px; }
    .row:last-child { border-bottom: none; }
    .pill { border-radius: 8px; padding: 2px 10px; font-size: 12px; font-weight: 700; }
    .pill.ok { background: rgba(0,158,96,0.1); color: var(--green); }
    .pill.err { background: rgba(220,38,38,0.1); color: #dc2626; }
    .last { margin-top: 16px; font-family: monospace; font-size: 13px; color: var(--muted); }
    button { margin-top: 20px; border: 1px solid #ddd; background: #fff; border-radius: 8px; padding: 8px 16px; font-weight: 700; cursor: pointer; }
    #errors { margin-top: 16px; }
    .error { background: #fff; border-left: 4px solid #dc2626; padding: 10px 14px; margin-bottom: 8px; font-size: 13px; }
    @media (max-width: 800px) { .cards { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
<main>
  <header>
    <h1>Daloa<span>Market</span> API</h1>
    <div id="clock"></div>
  </header>
  <div id="headline" class="headline {{.Status}}">{{if eq .Status "ok"}}Tous les services sont opérationnels{{else}}Incident en cours{{end}}</div>
  <div class="cards">
    <section class="card">
      <h2>Trafic</h2>
      <div class="big" id="total">{{.Traffic.TotalRequests}}</div>
      <div class="row"><span>Succès</span><span id="success">{{.Traffic.SuccessCount}}</span></div>
      <div class="row"><span>Échecs</span><span id="failed">{{.Traffic.FailedCount}}</span></div>
      <div class="row"><span>Taux de succès</span><span id="rate">{{.Traffic.SuccessRate}}%</span></div>
      <div class="row"><span>Latence moyenne</span><span id="avg">{{.Traffic.AvgResponseTime}} ms</span></div>
    </section>
    <section class="card">
      <h2>Processus</h2>
      <div class="big" id="uptime">{{.Runtime.UptimeSeconds}}s</div>
      <div class="row"><span>Heap</span><span id="heap">{{.Runtime.Memory.HeapUsed}} MB</span></div>
      <div class="row"><span>Goroutines</span><span id="goroutines">{{.Runtime.Goroutines}}</span></div>
      <div class="row"><span>Plateforme</span><span>{{.Runtime.Platform}}</span></div>
      <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}}</span></div>
    </section>
    <section class="card">
      <h2>Dépendances</h2>
      {{range $name, $d := .Dependencies}}<div class="row"><span>{{$name}}</span><span id="dep-{{$name}}" class="pill {{dep $d}}">{{ping $d}} ms</span></div>
      {{end}}
    </section>
  </div>
  <div class="last">Dernière requête : <span id="last">{{last .Traffic.LastRequest "method"}} {{last .Traffic.LastRequest "path"}}</span></div>
  <button onclick="loadErrors()">Voir les erreurs</button>
  <div id="errors"></div>
</main>
<script>
  const uptime = (s) => { const h = Math.floor(s / 3600), m = Math.floor((s % 3600) / 60); return h + 'h ' + m + 'm ' + (s % 60) + 's'; };
  const render = (d) => {
    document.getElementById('clock').innerText = new Date().toLocaleTimeString('fr-FR');
    const hl = document.getElementById('headline');
    hl.className = 'headline ' + d.status;
    hl.innerText = d.status === 'ok' ? 'Tous les services sont opérationnels' : 'Incident en cours';
    document.getElementById('total').innerText = d.traffic.totalRequests;
    document.getElementById('success').innerText = d.traffic.successCount;
    document.getElementById('failed').innerText = d.traffic.failedCount;
    document.getElementById('rate').innerText = d.traffic.successRate + '%';
    document.getElementById('avg').innerText = d.traffic.avgResponseTime + ' ms';
    document.getElementById('uptime').innerText = uptime(d.runtime.uptimeSeconds);
    document.getElementById('heap').innerText = d.runtime.memory.heapUsed + ' MB';
    document.getElementById('goroutines').innerText = d.runtime.goroutines;
    for (const [name, dep] of Object.entries(d.dependencies)) {
      const el = document.getElementById('dep-' + name);
      if (!el) continue;
      const ok = dep.status === 'connected' || dep.status === 'reachable';
      el.className = 'pill ' + (ok ? 'ok' : 'err');
      el.innerText = (dep.pingMs != null ? dep.pingMs : '?') + ' ms';
    }
    if (d.traffic.lastRequest) document.getElementById('last').innerText = d.traffic.lastRequest.method + ' ' + d.traffic.lastRequest.path;
  };
  async function refresh() { try { render(await (await fetch('/health/json')).json()); } catch (e) {} }
  async function loadErrors() {
    const box = document.getElementById('errors');
    box.innerText = 'Chargement...';
    try {
      const list = await (await fetch('/health/errors')).json();
      box.innerHTML = '';
      if (list.length === 0) { box.innerText = 'Aucune erreur enregistrée.'; return; }
      for (const e of list) {
        const div = document.createElement('div');
        div.className = 'error';
        div.innerText = new Date(e.time).toLocaleString('fr-FR') + ' · ' + (e.method || '') + ' ' + (e.path || '') + ' · ' + (e.status || '') + (e.error ? ' · ' + e.error : '');
        box.appendChild(div);
      }
    } catch (e) { box.innerText = 'Impossible de charger le journal.'; }
  }
  render({{.JSON}});
  setInterval(refresh, 15000);
</script>
</body>
</html>`))

// RenderDashboard returns the status page with the current snapshot embedded.
func RenderDashboard(r Result) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = dashboardTmpl.Execute(&buf, struct {
		Result
		JSON template.JS
	}{Result: r, JSON: template.JS(raw)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
