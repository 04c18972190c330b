package api

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/gate"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<main>
<h1>Admin sign in</h1>
{{if .Failed}}<p role="alert">Invalid email or password.</p>{{end}}
{{if .Email}}<p>Signed in as <strong>{{.Email}}</strong>. <a href="/admin/">Continue</a></p>{{end}}
<form method="post" action="{{.LoginAction}}">
<label>Email <input type="email" name="email" autocomplete="username" required></label>
<label>Password <input type="password" name="password" autocomplete="current-password" required></label>
<button type="submit">Sign in</button>
</form>
</main>
</body>
</html>
`))

var adminPage = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin</title></head>
<body>
<header>
<span>{{.Email}}</span>
<form method="post" action="{{.SignOutPath}}"><button type="submit">Sign out</button></form>
</header>
<main id="admin">
<p>Verifying session...</p>
</main>
<script>
(function () {
  var last = 0;
  function activity(kind) {
    var now = Date.now();
    if (now - last < 10000) return;
    last = now;
    fetch({{.ActivityPath}}, {
      method: "POST",
      credentials: "same-origin",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({kind: kind})
    });
  }
  window.addEventListener("mousemove", function () { activity("pointer"); });
  window.addEventListener("keydown", function () { activity("key"); });
  window.addEventListener("click", function () { activity("click"); });

  var events = new EventSource({{.EventsPath}});
  events.addEventListener("decision", function (e) {
    var res = JSON.parse(e.data);
    if (res.decision === "authorized") {
      document.getElementById("admin").textContent = "Session active.";
    } else if (res.decision === "denied") {
      events.close();
      window.location.assign(res.redirect || {{.LoginPath}});
    }
  });
})();
</script>
</body>
</html>
`))

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Failed      bool
		Email       string
		LoginAction string
	}{
		Failed:      r.URL.Query().Get("error") != "",
		LoginAction: LoginRoute,
	}
	if principal, _, ok := gate.PrincipalFromContext(r.Context()); ok {
		data.Email = principal.NormalizedEmail()
	}
	renderPage(w, r, loginPage, data)
}

// handleUnauthorizedPage shows the denial page for a signed in principal that is
// not allowed. Everyone else is sent where the gate would send them.
func (s *Server) handleUnauthorizedPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := s.gate.Options()

	principal, _, err := s.provider.Resolve(ctx, gate.TokenFromRequest(r, s.cookie.Name))
	if err != nil || principal == nil {
		http.Redirect(w, r, opts.LoginPath, http.StatusSeeOther)
		return
	}
	email := principal.NormalizedEmail()
	if opts.AllowList.Allows(email) {
		http.Redirect(w, r, AdminRoot, http.StatusSeeOther)
		return
	}
	s.gate.RenderDenial(w, r, email, http.StatusForbidden)
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	principal, _, _ := gate.PrincipalFromContext(r.Context())
	var email string
	if principal != nil {
		email = principal.NormalizedEmail()
	}
	opts := s.gate.Options()
	renderPage(w, r, adminPage, struct {
		Email        string
		SignOutPath  string
		LoginPath    string
		EventsPath   string
		ActivityPath string
	}{
		Email:        email,
		SignOutPath:  opts.SignOutPath,
		LoginPath:    opts.LoginPath,
		EventsPath:   EventsRoute + "?path=" + AdminRoot,
		ActivityPath: ActivityRoute,
	})
}

func renderPage(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("template", tmpl.Name()).Msg("failed to render page")
	}
}
