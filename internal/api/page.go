package api

import "html/template"

type graphPageData struct {
	Title string
}

var graphPage = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
#graph img { max-width: 100%; border: 1px solid #ddd; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { padding: 4px 10px; border-bottom: 1px solid #eee; text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><button id="run">Run simulation</button> <span id="status"></span></p>
<div id="graph"><img id="svg" src="/graph.svg" alt="infrastructure graph"></div>
<table>
<thead><tr><th>Node</th><th>Last severity</th><th>Worst</th><th>Alerts</th></tr></thead>
<tbody id="nodes"></tbody>
</table>
<script>
async function refresh() {
  const res = await fetch('/graph-data');
  const data = await res.json();
  const body = document.getElementById('nodes');
  body.innerHTML = '';
  for (const n of data.nodes) {
    const tr = document.createElement('tr');
    for (const v of [n.id, n.severity, n.alert_count ? n.worst : '-', n.alert_count]) {
      const td = document.createElement('td');
      td.textContent = v;
      tr.appendChild(td);
    }
    body.appendChild(tr);
  }
  document.getElementById('svg').src = '/graph.svg?t=' + Date.now();
}
document.getElementById('run').addEventListener('click', async () => {
  const res = await fetch('/run');
  const out = await res.json();
  document.getElementById('status').textContent = 'root causes: ' + (out.root_causes || []).join(', ');
  await refresh();
});
refresh();
</script>
</body>
</html>
`))
