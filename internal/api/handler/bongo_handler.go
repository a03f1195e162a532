package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
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

// malformedDelta stands in for a body that is not a JSON object. It never
// parses as an integer, so the ledger reports bad_delta after its own
// authentication check.
const malformedDelta = "\x00malformed"

// BongoHandler serves the game page, score sync and leaderboard.
type BongoHandler struct {
	scores   ports.ScoreService
	sessions *session.Manager
	log      zerolog.Logger
}

func NewBongoHandler(scores ports.ScoreService, sessions *session.Manager, log zerolog.Logger) *BongoHandler {
	return &BongoHandler{
		scores:   scores,
		sessions: sessions,
		log:      logger.Component(log, "bongo_handler"),
	}
}

// Game handles GET /bongo_cat/.
func (h *BongoHandler) Game(c echo.Context) error {
	sess := ctxSession(c)
	score, err := h.scores.Score(c.Request().Context(), sess)
	if err != nil {
		return err
	}

	p := view.Page{Title: "Bongo Cat", Session: sess, Flashes: h.sessions.Flashes(c)}
	if score != nil {
		p.Data = score
	}
	return c.Render(http.StatusOK, "game", p)
}

// Sync handles POST /bongo_cat/sync.
//
// @Summary      Report clicks since the last sync
// @Description  Adds a bounded, non-negative delta to the logged-in user's score. A zero delta is a no-op and answers {"total": null}.
// @Tags         bongo_cat
// @Accept       json
// @Produce      json
// @Param        body  body      syncRequest    true  "Clicks since the last sync"
// @Success      200   {object}  syncResponse
// @Failure      400   {object}  errorResponse  "bad_delta, negative_delta_forbidden or delta_too_large"
// @Failure      401   {object}  errorResponse  "not_logged_in or no_user"
// @Failure      500   {object}  errorResponse
// @Router       /bongo_cat/sync [post]
func (h *BongoHandler) Sync(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	raw := readDelta(body)
	total, err := h.scores.Sync(c.Request().Context(), ctxSession(c), raw)
	if err != nil {
		status, code := syncFailure(err)
		if status == 0 {
			metrics.ScoreSyncsTotal.WithLabelValues("error").Inc()
			return err
		}
		if errors.Is(err, domain.ErrStaleSession) {
			if endErr := h.sessions.End(c); endErr != nil {
				h.log.Warn().Err(endErr).Msg("session not cleared")
			}
		}
		metrics.ScoreSyncsTotal.WithLabelValues(code).Inc()
		return c.JSON(status, errorResponse{Error: code})
	}

	if total == nil {
		metrics.ScoreSyncsTotal.WithLabelValues("noop").Inc()
	} else {
		metrics.ScoreSyncsTotal.WithLabelValues("applied").Inc()
		if delta, err := domain.ParseDelta(raw); err == nil {
			metrics.ScorePointsTotal.Add(float64(delta))
		}
	}
	return c.JSON(http.StatusOK, syncResponse{Total: total})
}

// syncFailure maps a ledger error to its status and client code. A zero
// status means err is not a ledger outcome.
func syncFailure(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "not_logged_in"
	case errors.Is(err, domain.ErrStaleSession):
		return http.StatusUnauthorized, "no_user"
	case errors.Is(err, domain.ErrBadDelta):
		return http.StatusBadRequest, "bad_delta"
	case errors.Is(err, domain.ErrNegativeDelta):
		return http.StatusBadRequest, "negative_delta_forbidden"
	case errors.Is(err, domain.ErrDeltaTooLarge):
		return http.StatusBadRequest, "delta_too_large"
	}
	return 0, ""
}

// readDelta pulls the raw delta text out of a JSON sync body. An empty body,
// a null body or a missing key mean no delta. Strings are unquoted; any
// other JSON value is passed through as written and left to the parser.
func readDelta(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return malformedDelta
	}
	raw, ok := fields["delta"]
	if !ok {
		return ""
	}

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || len(bytes.TrimSpace([]byte(s))) == 0 {
			return malformedDelta
		}
		return s
	}
	return string(raw)
}

// Leaderboard handles GET /bongo_cat/leaderboard.
//
// @Summary      Top scores
// @Description  Ten best scores, ties broken by username. Renders HTML unless format=json.
// @Tags         bongo_cat
// @Produce      json
// @Produce      html
// @Param        format  query     string  false  "json for a machine-readable answer"
// @Success      200     {object}  leaderboardResponse
// @Failure      500     {object}  errorResponse
// @Router       /bongo_cat/leaderboard [get]
func (h *BongoHandler) Leaderboard(c echo.Context) error {
	rows, err := h.scores.Leaderboard(c.Request().Context(), domain.DefaultLeaderboardLimit)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []domain.LeaderboardEntry{}
	}

	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, leaderboardResponse{Rows: rows})
	}
	return c.Render(http.StatusOK, "leaderboard", view.Page{
		Title:   "Leaderboard",
		Session: ctxSession(c),
		Flashes: h.sessions.Flashes(c),
		Data:    rows,
	})
}
