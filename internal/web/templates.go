package web

import "html/template"

var introTemplate = template.Must(template.New("intro").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>bitalgo</title>
  <style>
    body { font-family:'Space Mono','JetBrains Mono',monospace; margin:2rem; color:#111; }
    a { color:#7D56F4; }
    li { margin:.4rem 0; }
  </style>
</head>
<body>
  <h1>bitalgo</h1>
  <p>Dollar-cost averaging simulator: buy for a fixed amount every period and see
  how the average cost and the return rate evolve over the trailing closes.</p>
  <p>Default: {{.Amount}} per period on {{.Pair}}.</p>
  <ul>
  {{range .Links}}<li><a href="{{.Path}}">{{.Title}}</a></li>
  {{end}}</ul>
</body>
</html>
`))

var reportTemplate = template.Must(template.New("report").Parse(`
<div style="font-family:monospace;margin:1rem 2rem">
  <h3>Run {{.RunID}}</h3>
  <p>Total invested: {{.Summary.TotalInvested.String}} |
  Total units: {{.Summary.TotalUnits.StringFixed 6}} |
  Final return: {{.Summary.FinalReturnRatePct.StringFixed 2}}%</p>
  <table border="1" cellpadding="4" style="border-collapse:collapse">
    <tr><th>#</th><th>Price</th><th>Invested</th><th>Units</th><th>Cum. units</th><th>Cum. invested</th><th>Avg cost</th><th>Return %</th></tr>
    {{range .Rows}}<tr>
      <td>{{.PeriodIndex}}</td><td>{{.Price.String}}</td><td>{{.Contribution.String}}</td>
      <td>{{.UnitsBought.StringFixed 8}}</td><td>{{.CumulativeUnits.StringFixed 8}}</td>
      <td>{{.CumulativeInvested.String}}</td><td>{{.AverageCost.String}}</td><td>{{.ReturnRatePct.StringFixed 2}}</td>
    </tr>
    {{end}}
  </table>
</div>
`))
