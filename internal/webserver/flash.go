package webserver

import (
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sessionName = "digistore"

// AddFlash queues a message for the next page rendered in this session.
func AddFlash(c echo.Context, msg string) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		zap.L().Warn("session unavailable", zap.Error(err))
		return
	}
	sess.AddFlash(msg)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Warn("session save failed", zap.Error(err))
	}
}

// Flashes pops the queued messages.
func Flashes(c echo.Context) []string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Warn("session save failed", zap.Error(err))
	}
	return msgs
}
