package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const heartbeatInterval = 30 * time.Second

// dashboardClaims is the JWT payload dashboards authenticate with.
type dashboardClaims struct {
	CompanyID int32  `json:"company_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// SSEHandler streams hub events to dashboard viewers over server-sent events.
type SSEHandler struct {
	hub       *Hub
	jwtSecret []byte
}

// NewSSEHandler creates a new SSE handler.
func NewSSEHandler(hub *Hub, jwtSecret string) *SSEHandler {
	return &SSEHandler{hub: hub, jwtSecret: []byte(jwtSecret)}
}

// Register mounts the stream endpoint on the echo group.
func (h *SSEHandler) Register(g *echo.Group) {
	g.GET("/stream", h.Stream)
}

// Stream handles GET /stream?token=<jwt>. The connection stays open until
// the client disconnects; heartbeats keep intermediaries from timing out.
func (h *SSEHandler) Stream(c echo.Context) error {
	claims, err := h.authenticate(c.QueryParam("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	id, events := h.hub.Subscribe(claims.CompanyID)
	defer h.hub.Unsubscribe(id)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func (h *SSEHandler) authenticate(tokenString string) (*dashboardClaims, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	claims := &dashboardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if !token.Valid || claims.CompanyID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// IssueDashboardToken signs a short-lived token for dashboard streaming.
// Exposed for the operator API and tests.
func IssueDashboardToken(secret string, companyID int32, email string, ttl time.Duration) (string, error) {
	claims := &dashboardClaims{
		CompanyID: companyID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}
