package main

import (
	"html/template"
	"log"
	"net/http"

	"esygrab/internal/models"
	"esygrab/internal/session"
	"esygrab/internal/utils"
)

var homeTmpl = template.Must(template.New("home").Parse(`
<!DOCTYPE html>
<html>
<head><title>EsyGrab</title></head>
<body>
	<h1>EsyGrab</h1>
	{{if .Authenticated}}
	<p>Signed in as {{.Email}} ({{.Role}})</p>
	<p><a href="/logout">Logout</a></p>
	{{else}}
	<p><a href="/login">Login</a></p>
	{{end}}
</body>
</html>`))

// handleHome renders the storefront entry page. It reads the session
// without requiring one: guests browse too.
func (app *App) handleHome(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Authenticated bool
		Email         string
		Role          string
	}{}

	if rec := app.sessionFromCookie(r); rec != nil {
		data.Authenticated = true
		data.Email = rec.User.Email
		data.Role = string(rec.Role)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTmpl.Execute(w, data); err != nil {
		log.Printf("Failed to execute home template: %v", err)
	}
}

var loginTmpl = template.Must(template.New("login").Parse(`
<!DOCTYPE html>
<html>
<head><title>Login - EsyGrab</title></head>
<body>
	<h1>Sign in</h1>
	<form id="passwordForm">
		<input type="email" name="email" placeholder="Email" required>
		<input type="password" name="password" placeholder="Password" required>
		<button type="submit">Sign in</button>
	</form>
	<h2>Or use your phone</h2>
	<form id="otpForm">
		<input type="tel" name="phone" placeholder="+9779800000000" required>
		<button type="button" id="sendCode">Send code</button>
		<input type="text" name="code" placeholder="6-digit code" maxlength="6">
		<button type="submit">Verify</button>
	</form>
	<p><a href="/auth/google">Continue with Google</a></p>
	<script>
	document.getElementById('passwordForm').addEventListener('submit', async function(e) {
		e.preventDefault();
		const form = new FormData(this);
		const resp = await fetch('/auth/login', {
			method: 'POST',
			headers: {'Content-Type': 'application/json'},
			credentials: 'same-origin',
			body: JSON.stringify({email: form.get('email'), password: form.get('password')})
		});
		if (resp.ok) {
			const body = await resp.json();
			window.location.href = body.redirect;
		} else {
			alert('Sign-in failed');
		}
	});
	document.getElementById('sendCode').addEventListener('click', async function() {
		const phone = document.querySelector('#otpForm [name=phone]').value;
		const resp = await fetch('/auth/otp/send', {
			method: 'POST',
			headers: {'Content-Type': 'application/json'},
			credentials: 'same-origin',
			body: JSON.stringify({phone: phone})
		});
		alert(resp.ok ? 'Code sent' : 'Failed to send code');
	});
	document.getElementById('otpForm').addEventListener('submit', async function(e) {
		e.preventDefault();
		const form = new FormData(this);
		const resp = await fetch('/auth/otp/verify', {
			method: 'POST',
			headers: {'Content-Type': 'application/json'},
			credentials: 'same-origin',
			body: JSON.stringify({phone: form.get('phone'), code: form.get('code')})
		});
		if (resp.ok) {
			const body = await resp.json();
			window.location.href = body.redirect;
		} else {
			alert('Invalid code');
		}
	});
	</script>
</body>
</html>`))

// handleLoginPage renders the sign-in page. A caller who already holds a
// valid session is sent straight to their dashboard.
func (app *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if rec := app.sessionFromCookie(r); rec != nil {
		session.RedirectToRoleDashboard(w, r, rec.Role)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTmpl.Execute(w, nil); err != nil {
		log.Printf("Failed to execute login template: %v", err)
	}
}

var adminTmpl = template.Must(template.New("admin").Parse(`
<!DOCTYPE html>
<html>
<head><title>Admin - EsyGrab</title></head>
<body>
	<h1>Admin Dashboard</h1>
	<p>Welcome, {{.Email}}</p>
	{{if .IsSuperAdmin}}<p>Role grants: <code>GET /api/admin/roles</code></p>{{end}}
	<p><a href="/">Storefront</a> | <a href="/logout">Logout</a></p>
</body>
</html>`))

// handleAdminDashboard is the admin landing page.
func (app *App) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	email, ok := utils.RequireAuthentication(w, r)
	if !ok {
		return
	}
	role, _ := utils.GetUserRole(r)

	data := struct {
		Email        string
		IsSuperAdmin bool
	}{Email: email, IsSuperAdmin: role == models.RoleSuperAdmin}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := adminTmpl.Execute(w, data); err != nil {
		log.Printf("Failed to execute admin template: %v", err)
	}
}

var deliveryTmpl = template.Must(template.New("delivery").Parse(`
<!DOCTYPE html>
<html>
<head><title>Delivery Partner - EsyGrab</title></head>
<body>
	<h1>Delivery Partner Dashboard</h1>
	<p>Welcome, {{.Email}}</p>
	<p><a href="/logout">Logout</a></p>
</body>
</html>`))

// handleDeliveryDashboard is the delivery-partner landing page.
func (app *App) handleDeliveryDashboard(w http.ResponseWriter, r *http.Request) {
	email, ok := utils.RequireAuthentication(w, r)
	if !ok {
		return
	}

	data := struct{ Email string }{Email: email}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := deliveryTmpl.Execute(w, data); err != nil {
		log.Printf("Failed to execute delivery template: %v", err)
	}
}

// handleSessionAPI returns the caller's own role session as JSON, or 401.
// Like the rest of the auth surface it trusts only the cookie binding.
func (app *App) handleSessionAPI(w http.ResponseWriter, r *http.Request) {
	rec := app.sessionFromCookie(r)
	if rec == nil {
		utils.AuthenticationError(w)
		return
	}

	// The opaque credential stays server-side.
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user":          rec.User,
		"role":          rec.Role,
		"expires_at":    rec.ExpiresAt,
		"last_activity": rec.LastActivity,
	})
}
