package render

import (
	"bytes"
	"fmt"
	"html/template"
)

var browsingHistoryTmpl = template.Must(template.New("browsingHistory").Parse(`<p>Below is every page the customer visited, in order, prior to completing this transaction.</p>
{{- if .Empty}}
<p><em>No page history collected.</em></p>
{{- else}}
<p><strong>Referrer:</strong> {{if .ReferrerIsURL}}<a href="{{.Referrer}}" target="_blank">{{.Referrer}}</a>{{else}}{{.Referrer}}{{end}}</p>
{{- if .SearchQuery}}
<p>Original search query: <strong><mark>{{.SearchQuery}}</mark></strong></p>
{{- end}}
<table class="widefat fixed striped">
<thead><tr><th>URL</th><th>Timestamp</th><th>Time elapsed</th><th>Total</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Index}}. <a href="{{.URL}}" target="_blank">{{.URL}}</a></td><td>{{.Timestamp}}</td><td>{{.Elapsed}}</td><td>{{.Total}}</td></tr>
{{- end}}
</tbody>
</table>
<p><strong>Total Time Elapsed:</strong> {{.TotalElapsed}}</p>
{{- end}}
`))

var purchaseHistoryTmpl = template.Must(template.New("purchaseHistory").Parse(`<div class="spacing-wrapper clearfix">
<p>Below is every order this customer has completed, including this one (highlighted).</p>
<table class="widefat fixed striped">
<thead><tr><th>Order Number</th><th>Order Date</th><th>Order Status</th><th>Order Total</th></tr></thead>
{{- if .Rows}}
<tbody>
{{- range .Rows}}
<tr{{if .Current}} style="background: #ffc; font-weight: bold"{{end}}><td>{{.Index}}. <a href="/api/admin/orders/{{.OrderID}}/history">Order {{.Number}}</a></td><td>{{.Date}}</td><td>{{.Status}}</td><td>{{.Total}}</td></tr>
{{- end}}
</tbody>
{{- end}}
</table>
<p><strong>Actual Lifetime Customer Value:</strong> <span style="color:#7EB03B; font-size:1.2em; font-weight:bold;">{{.LifetimeValue}}</span></p>
</div>
`))

var metaboxTmpl = template.Must(template.New("metabox").Parse(`<div class="postbox">
<h3 class="hndle"><span>{{.Title}}</span></h3>
<div class="inside">{{.Content}}</div>
</div>
`))

// BrowsingHistoryHTML renders the timeline fragment.
func BrowsingHistoryHTML(t Timeline) (string, error) {
	return execute(browsingHistoryTmpl, t)
}

// PurchaseHistoryHTML renders the purchase table fragment.
func PurchaseHistoryHTML(p PurchaseHistory) (string, error) {
	return execute(purchaseHistoryTmpl, p)
}

// Metabox wraps an already rendered fragment in an admin panel.
func Metabox(title, content string) (string, error) {
	return execute(metaboxTmpl, struct {
		Title   string
		Content template.HTML
	}{title, template.HTML(content)})
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
