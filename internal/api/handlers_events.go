package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupEventsRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", s.streamEvents)
}

// streamEvents subscribes to the event bus and writes one JSON-encoded
// eventbus.Event per line for as long as the client stays connected.
// There is no replay: a subscriber only sees events published after it
// connects.
func (s *Server) streamEvents(c *gin.Context) {
	tags := c.QueryArray("topic")
	if len(tags) == 0 {
		tags = []string{"all"}
	}

	sub := s.services.Bus.Subscribe(tags...)
	defer sub.Close()

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(200)
	c.Writer.Flush()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			line, err := json.Marshal(event)
			if err != nil {
				continue
			}
			line = append(line, '\n')
			if _, err := c.Writer.Write(line); err != nil {
				return
			}
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
