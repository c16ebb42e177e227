package httpapi

import (
	"html/template"
	"net/http"
	"strings"
)

var dashboardLoginTemplate = template.Must(template.New("dashboard_login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/api/v1/login">
<input type="email" name="email" placeholder="Email" required>
<input type="password" name="password" placeholder="Password" required>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

func (s *Server) dashboardLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Title string }{Title: s.platform + " Dashboard"}
	if err := dashboardLoginTemplate.Execute(w, data); err != nil {
		s.log.Error(r.Context(), "dashboard template failed", "error", err)
	}
}

func (s *Server) publicAsset(w http.ResponseWriter, r *http.Request) {
	s.public.ServeAsset(w, r, r.URL.Path)
}

func (s *Server) dashboardAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/dashboard")
	s.assets.ServeAsset(w, r, name)
}
