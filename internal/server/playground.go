package server

import (
	"bytes"
	"html/template"
	"net/http"
)

const playgroundVersion = "1.7.28"

// playground returns a handler serving GraphQL Playground pointed at endpoint.
func playground(title, endpoint string) http.HandlerFunc {
	var buf bytes.Buffer
	err := playgroundPage.Execute(&buf, map[string]string{
		"title":    title,
		"endpoint": endpoint,
		"version":  playgroundVersion,
	})
	if err != nil {
		panic(err)
	}
	page := buf.Bytes()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

// The page loads the playground bundle from jsDelivr and points it at the
// GraphQL endpoint on the same host.
var playgroundPage = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .title }}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react@{{ .version }}/build/static/css/index.css">
<script src="https://cdn.jsdelivr.net/npm/graphql-playground-react@{{ .version }}/build/static/js/middleware.js"></script>
<style>body { margin: 0; }</style>
</head>
<body>
<div id="playground"></div>
<script>
window.addEventListener('load', function () {
	GraphQLPlayground.init(document.getElementById('playground'), {
		endpoint: window.location.origin + '{{ .endpoint }}',
		settings: { 'request.credentials': 'same-origin' },
	});
});
</script>
</body>
</html>
`))
