package messages

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	msgsvc "daloamarket-backend/internal/application/messages"
	"daloamarket-backend/internal/application/realtime"
	"daloamarket-backend/internal/metrics"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const defaultHeartbeat = 25 * time.Second

type Handlers struct {
	Service   *msgsvc.Service
	Hub       *realtime.Hub
	Heartbeat time.Duration
}

type threadRequest struct {
	ListingID uuid.UUID `json:"listing_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// POST /api/v1/messages
func (h *Handlers) Send(c *fiber.Ctx) error {
	var in msgsvc.SendInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, msgsvc.ErrEmpty.Error(), fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.Send(c.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		return messageError(c, err)
	}
	metrics.RecordMessageSent()
	return response.SuccessCreated(c, "Message envoyé", m, nil)
}

// GET /api/v1/messages/conversations
func (h *Handlers) Conversations(c *fiber.Ctx) error {
	convs, err := h.Service.Conversations(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Conversations récupérées", convs, nil)
}

// GET /api/v1/messages/thread?listing_id=&user_id=
func (h *Handlers) Thread(c *fiber.Ctx) error {
	listingID, err1 := uuid.Parse(c.Query("listing_id"))
	other, err2 := uuid.Parse(c.Query("user_id"))
	if err1 != nil || err2 != nil {
		return response.Error(c, "listing_id et user_id sont requis", fiber.StatusBadRequest, nil)
	}
	msgs, err := h.Service.Thread(c.Context(), middleware.CurrentUserID(c), listingID, other)
	if err != nil {
		return messageError(c, err)
	}
	return response.Success(c, "Messages récupérés", msgs, nil)
}

// PATCH /api/v1/messages/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	var req threadRequest
	if err := c.BodyParser(&req); err != nil || req.ListingID == uuid.Nil || req.UserID == uuid.Nil {
		return response.Error(c, "listing_id et user_id sont requis", fiber.StatusBadRequest, nil)
	}
	n, err := h.Service.MarkRead(c.Context(), middleware.CurrentUserID(c), req.ListingID, req.UserID)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Messages marqués comme lus", fiber.Map{"updated": n}, nil)
}

// GET /api/v1/messages/unread-count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Service.UnreadCount(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Messages non lus", fiber.Map{"count": n}, nil)
}

// GET /api/v1/messages/stream
func (h *Handlers) Stream(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	ctx, cancel := context.WithCancel(context.Background())
	ps, err := h.Hub.Subscribe(ctx, userID)
	if err != nil {
		cancel()
		return middleware.InternalError(c, err)
	}
	interval := h.Heartbeat
	if interval <= 0 {
		interval = defaultHeartbeat
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer ps.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Debug().Str("user_id", userID.String()).Msg("event stream opened")
		err := pump(w, ps.Channel(), ticker.C)
		log.Debug().Err(err).Str("user_id", userID.String()).Msg("event stream closed")
	}))
	return nil
}

// pump forwards pub/sub events as SSE frames until the channel closes or a write fails.
func pump(w *bufio.Writer, events <-chan *redis.Message, heartbeat <-chan time.Time) error {
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			ev, err := realtime.Decode(msg.Payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
		case <-heartbeat:
			fmt.Fprint(w, ": ping\n\n")
		}
		// a failed flush means the client went away
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

func messageError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, msgsvc.ErrEmpty), errors.Is(err, msgsvc.ErrTooLong),
		errors.Is(err, msgsvc.ErrSelfMessage), errors.Is(err, msgsvc.ErrInvalidReceiver):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, msgsvc.ErrListingNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	default:
		return middleware.InternalError(c, err)
	}
}
