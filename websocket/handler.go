package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and registers the client with the
// hub. Clients connecting without a user ID must authenticate by sending
// "AUTH:<jwt>" before they receive notifications.
func HandleWebSocket(c echo.Context, hub *Hub, userID primitive.ObjectID) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID:        userID,
		Conn:          conn,
		Authenticated: userID != primitive.NilObjectID,
	}

	hub.register <- client

	if client.Authenticated {
		conn.WriteJSON(Message{
			Type:   MessageTypeConnected,
			Body:   "WebSocket connection established",
			UserID: userID.Hex(),
		})
	} else {
		conn.WriteJSON(Message{
			Type:         MessageTypeConnected,
			Body:         "WebSocket connection established. Please authenticate to receive notifications.",
			RequiresAuth: true,
		})
	}

	go func() {
		defer func() {
			hub.unregister <- client
		}()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				break
			}

			if messageType != websocket.TextMessage {
				continue
			}

			messageStr := string(message)
			if !strings.HasPrefix(messageStr, "AUTH:") {
				continue
			}

			tokenString := strings.TrimPrefix(messageStr, "AUTH:")
			claims, err := middleware.ParseToken(tokenString)
			if err != nil {
				conn.WriteJSON(Message{
					Type:         MessageTypeAuthResponse,
					Body:         "Invalid token",
					RequiresAuth: true,
				})
				continue
			}

			authUserID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				conn.WriteJSON(Message{
					Type:         MessageTypeAuthResponse,
					Body:         "Invalid user ID in token",
					RequiresAuth: true,
				})
				continue
			}

			hub.AuthenticateClient(client, authUserID)
			conn.WriteJSON(Message{
				Type:   MessageTypeAuthResponse,
				Body:   "Authenticated",
				UserID: authUserID.Hex(),
			})
		}
	}()

	return nil
}
