package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MENO-App/BE-MENO/middlewares"
	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/services"
)

const wsPingInterval = 25 * time.Second

type RealtimeController struct {
	RT    *services.RealtimeHub
	Users *services.UserService
}

func NewRealtimeController(rt *services.RealtimeHub, users *services.UserService) *RealtimeController {
	return &RealtimeController{RT: rt, Users: users}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MenusWS subscribes the caller to menu publications of their school.
// Kitchen and admin callers may watch another school with ?schoolId=.
func (rc *RealtimeController) MenusWS(c *gin.Context) {
	schoolID, ok := rc.schoolFor(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &services.WSClient{SchoolID: schoolID, Conn: conn}
	rc.RT.Register(cl)

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsPingInterval)); err != nil {
					rc.RT.Unregister(cl)
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.RT.Unregister(cl)
			return
		}
	}
}

func (rc *RealtimeController) schoolFor(c *gin.Context) (uuid.UUID, bool) {
	if raw := c.Query("schoolId"); raw != "" {
		if !middlewares.HasRole(c, models.RoleKitchen) && !middlewares.HasRole(c, models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient role"})
			return uuid.Nil, false
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "schoolId must be a uuid"})
			return uuid.Nil, false
		}
		return id, true
	}
	id, ok := identity(c)
	if !ok {
		return uuid.Nil, false
	}
	user, err := rc.Users.ForIdentity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return user.SchoolID, true
}
