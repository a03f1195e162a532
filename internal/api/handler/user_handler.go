package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bongocat/webapp/internal/api/metrics"
	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/api/view"
	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/pkg/logger"
)

const (
	msgRegistered      = "Registration successful. Please log in."
	msgLoggedIn        = "Logged in."
	msgLoggedOut       = "Logged out."
	msgBadCredentials  = "Incorrect username or password."
	msgResetSent       = "If that email exists, a reset link was sent."
	msgResetExpired    = "Reset link expired. Please request a new one."
	msgResetInvalid    = "Invalid reset link."
	msgAccountNotFound = "Account not found."
	msgPasswordUpdated = "Password updated. You can log in now."
	msgLoginFirst      = "Please log in first."
	msgSessionExpired  = "Session expired. Please log in again."
	msgConfirmMismatch = "Confirmation text did not match your username."
	msgWrongPassword   = "Incorrect password."
	msgDeleted         = "Your account has been deleted."
)

// UserHandler serves the /user pages: register, login, logout, password
// reset and account deletion.
type UserHandler struct {
	accounts      ports.AccountService
	sessions      *session.Manager
	publicBaseURL string
	log           zerolog.Logger
}

func NewUserHandler(accounts ports.AccountService, sessions *session.Manager, publicBaseURL string, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		accounts:      accounts,
		sessions:      sessions,
		publicBaseURL: publicBaseURL,
		log:           logger.Component(log, "user_handler"),
	}
}

func (h *UserHandler) page(c echo.Context, title string) view.Page {
	return view.Page{
		Title:   title,
		Session: ctxSession(c),
		Flashes: h.sessions.Flashes(c),
	}
}

func (h *UserHandler) flash(c echo.Context, kind, msg string) {
	if err := h.sessions.Flash(c, kind, msg); err != nil {
		h.log.Warn().Err(err).Msg("flash not stored")
	}
}

func (h *UserHandler) redirect(c echo.Context, kind, msg, to string) error {
	h.flash(c, kind, msg)
	return c.Redirect(http.StatusSeeOther, to)
}

// endSession clears the cookie of a session whose user no longer exists.
func (h *UserHandler) endSession(c echo.Context) {
	if err := h.sessions.End(c); err != nil {
		h.log.Warn().Err(err).Msg("session not cleared")
	}
}

// Index shows who is logged in and their score.
func (h *UserHandler) Index(c echo.Context) error {
	p := h.page(c, "Account")
	user, err := h.accounts.Profile(c.Request().Context(), p.Session)
	if err != nil {
		return err
	}
	if user != nil {
		score := user.Score
		p.Data = &score
	}
	return c.Render(http.StatusOK, "user", p)
}

func (h *UserHandler) RegisterForm(c echo.Context) error {
	return c.Render(http.StatusOK, "register", h.page(c, "Register"))
}

func (h *UserHandler) Register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	p := h.page(c, "Register")
	p.Form = map[string]string{"username": form.Username, "email": form.Email}

	if err := c.Validate(&form); err != nil {
		p.Error = err.Error()
		return c.Render(http.StatusOK, "register", p)
	}

	user, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		var (
			ve *domain.ValidationError
			ce *domain.ConflictError
		)
		switch {
		case errors.As(err, &ve):
			p.Error = ve.Message
		case errors.As(err, &ce):
			switch ce.Field {
			case "username":
				p.Error = "Username is already taken."
				p.Form["username"] = ""
			case "email":
				p.Error = "Email is already registered."
				p.Form["email"] = ""
			default:
				p.Error = "Account already exists."
			}
		default:
			return err
		}
		return c.Render(http.StatusOK, "register", p)
	}

	metrics.AccountsRegisteredTotal.Inc()
	h.log.Debug().Str("user_id", user.ID).Msg("registration complete")
	return h.redirect(c, session.FlashOK, msgRegistered, "/user/login")
}

func (h *UserHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login", h.page(c, "Log in"))
}

func (h *UserHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	sess, err := h.accounts.Login(c.Request().Context(), form.Username, form.Password)
	if err != nil {
		p := h.page(c, "Log in")
		p.Form = map[string]string{"username": form.Username}

		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			p.Error = ve.Message
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			p.Error = msgBadCredentials
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			return err
		}
		return c.Render(http.StatusOK, "login", p)
	}

	if err := h.sessions.Start(c, *sess); err != nil {
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return h.redirect(c, session.FlashOK, msgLoggedIn, "/user/")
}

func (h *UserHandler) Logout(c echo.Context) error {
	h.accounts.Logout(c.Request().Context(), ctxSession(c))
	h.endSession(c)
	return h.redirect(c, session.FlashOK, msgLoggedOut, "/user/")
}

func (h *UserHandler) ResetRequestForm(c echo.Context) error {
	return c.Render(http.StatusOK, "reset_request", h.page(c, "Reset password"))
}

// ResetRequest answers the same way whether or not the address is known.
func (h *UserHandler) ResetRequest(c echo.Context) error {
	var form resetRequestForm
	_ = c.Bind(&form)

	result := "accepted"
	if err := c.Validate(&form); err != nil {
		result = "rejected"
	} else if err := h.accounts.RequestReset(c.Request().Context(), form.Email, baseURL(c, h.publicBaseURL)); err != nil {
		result = "error"
		h.log.Error().Err(err).Msg("reset request failed")
	}
	metrics.PasswordResetsTotal.WithLabelValues("request", result).Inc()

	return h.redirect(c, session.FlashOK, msgResetSent, "/user/login")
}

// resetTokenFailure redirects back to the request form for token problems
// and reports whether err was one.
func (h *UserHandler) resetTokenFailure(c echo.Context, err error) (bool, error) {
	var msg, result string
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		msg, result = msgResetExpired, "expired"
	case errors.Is(err, domain.ErrTokenInvalid):
		msg, result = msgResetInvalid, "invalid"
	case errors.Is(err, domain.ErrUserNotFound):
		msg, result = msgAccountNotFound, "invalid"
	default:
		return false, nil
	}
	metrics.PasswordResetsTotal.WithLabelValues("confirm", result).Inc()
	return true, h.redirect(c, session.FlashWarn, msg, "/user/reset")
}

func (h *UserHandler) ResetForm(c echo.Context) error {
	if _, err := h.accounts.CheckResetToken(c.Request().Context(), c.Param("token")); err != nil {
		if handled, rerr := h.resetTokenFailure(c, err); handled {
			return rerr
		}
		return err
	}
	return c.Render(http.StatusOK, "reset_form", h.page(c, "Choose a new password"))
}

func (h *UserHandler) ResetConfirm(c echo.Context) error {
	var form resetConfirmForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	err := h.accounts.ConfirmReset(c.Request().Context(), c.Param("token"), form.Password, form.Password2)
	if err != nil {
		if handled, rerr := h.resetTokenFailure(c, err); handled {
			return rerr
		}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.PasswordResetsTotal.WithLabelValues("confirm", "rejected").Inc()
			p := h.page(c, "Choose a new password")
			p.Error = ve.Message
			return c.Render(http.StatusOK, "reset_form", p)
		}
		metrics.PasswordResetsTotal.WithLabelValues("confirm", "error").Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("confirm", "accepted").Inc()
	return h.redirect(c, session.FlashOK, msgPasswordUpdated, "/user/login")
}

// deleteGuard handles the two ways a delete request can lack a live account.
func (h *UserHandler) deleteGuard(c echo.Context, err error) (bool, error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return true, h.redirect(c, session.FlashWarn, msgLoginFirst, "/user/login")
	case errors.Is(err, domain.ErrStaleSession):
		h.endSession(c)
		return true, h.redirect(c, session.FlashWarn, msgSessionExpired, "/user/login")
	}
	return false, nil
}

func (h *UserHandler) DeleteForm(c echo.Context) error {
	user, err := h.accounts.DeleteConfirmation(c.Request().Context(), ctxSession(c))
	if err != nil {
		if handled, rerr := h.deleteGuard(c, err); handled {
			return rerr
		}
		return err
	}

	p := h.page(c, "Delete account")
	p.Data = user.Username
	return c.Render(http.StatusOK, "delete", p)
}

func (h *UserHandler) Delete(c echo.Context) error {
	var form deleteForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	sess := ctxSession(c)
	err := h.accounts.DeleteAccount(c.Request().Context(), sess, form.Confirm, form.Password)
	if err != nil {
		if handled, rerr := h.deleteGuard(c, err); handled {
			return rerr
		}

		p := h.page(c, "Delete account")
		p.Data = sess.Username
		switch {
		case errors.Is(err, domain.ErrConfirmationMismatch):
			p.Error = msgConfirmMismatch
		case errors.Is(err, domain.ErrIncorrectPassword):
			p.Error = msgWrongPassword
		default:
			return err
		}
		return c.Render(http.StatusOK, "delete", p)
	}

	metrics.AccountsDeletedTotal.Inc()
	h.endSession(c)
	return h.redirect(c, session.FlashOK, msgDeleted, "/user/")
}
