package messages

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"daloamarket-backend/internal/application/realtime"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/catalog"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrEmpty           = errors.New("Le message ne peut pas être vide")
	ErrTooLong         = errors.New("Message trop long (2000 caractères maximum)")
	ErrSelfMessage     = errors.New("Vous ne pouvez pas vous envoyer un message")
	ErrListingNotFound = errors.New("Annonce introuvable")
	ErrInvalidReceiver = errors.New("Destinataire invalide")
)

// Service stores chat messages and notifies the other party in real time.
type Service struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

// SendInput is one outgoing message.
type SendInput struct {
	ListingID  uuid.UUID `json:"listing_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
}

// Send stores a message about a listing. One side of the conversation must own the listing.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*domain.Message, error) {
	content := strings.TrimSpace(in.Content)
	switch {
	case content == "":
		return nil, ErrEmpty
	case utf8.RuneCountInString(content) > catalog.MaxMessageSize:
		return nil, ErrTooLong
	case senderID == in.ReceiverID:
		return nil, ErrSelfMessage
	case in.ReceiverID == uuid.Nil:
		return nil, ErrInvalidReceiver
	}

	db := s.DB.WithContext(ctx)
	var l domain.Listing
	if err := db.Where("id = ?", in.ListingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if l.UserID != senderID && l.UserID != in.ReceiverID {
		return nil, ErrInvalidReceiver
	}

	m := &domain.Message{
		ListingID:  in.ListingID,
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Content:    content,
	}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	if err := s.Hub.Publish(ctx, m.ReceiverID, realtime.EventMessageCreated, m); err != nil {
		log.Warn().Err(err).Str("message_id", m.ID.String()).Msg("messages: realtime publish failed")
	}
	return m, nil
}

// Conversation summarizes one (listing, counterpart) thread.
type Conversation struct {
	ListingID       uuid.UUID `json:"listing_id"`
	ListingTitle    string    `json:"listing_title"`
	ListingPhoto    string    `json:"listing_photo"`
	OtherUserID     uuid.UUID `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	LastMessage     string    `json:"last_message"`
	LastMessageDate time.Time `json:"last_message_date"`
	UnreadCount     int       `json:"unread_count"`
}

// Conversations groups every message of userID by listing and counterpart, latest activity first.
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	db := s.DB.WithContext(ctx)
	var msgs []domain.Message
	if err := db.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, err
	}

	byKey := make(map[string]*Conversation)
	order := make([]string, 0)
	listingIDs := make(map[uuid.UUID]bool)
	userIDs := make(map[uuid.UUID]bool)
	for i := range msgs {
		m := &msgs[i]
		other := m.Counterpart(userID)
		key := m.ListingID.String() + "_" + other.String()
		conv, ok := byKey[key]
		if !ok {
			conv = &Conversation{
				ListingID:       m.ListingID,
				OtherUserID:     other,
				LastMessage:     m.Content,
				LastMessageDate: m.CreatedAt,
			}
			byKey[key] = conv
			order = append(order, key)
			listingIDs[m.ListingID] = true
			userIDs[other] = true
		}
		if m.ReceiverID == userID && !m.Read {
			conv.UnreadCount++
		}
	}

	titles, photos, err := s.listingCards(db, listingIDs)
	if err != nil {
		return nil, err
	}
	names, err := userNames(db, userIDs)
	if err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(order))
	for _, k := range order {
		c := byKey[k]
		c.ListingTitle = titles[c.ListingID]
		c.ListingPhoto = photos[c.ListingID]
		c.OtherUserName = names[c.OtherUserID]
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastMessageDate.After(out[j].LastMessageDate) })
	return out, nil
}

func (s *Service) listingCards(db *gorm.DB, ids map[uuid.UUID]bool) (map[uuid.UUID]string, map[uuid.UUID]string, error) {
	titles := make(map[uuid.UUID]string)
	photos := make(map[uuid.UUID]string)
	if len(ids) == 0 {
		return titles, photos, nil
	}
	var rows []domain.Listing
	if err := db.Where("id IN ?", keys(ids)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	for _, l := range rows {
		titles[l.ID] = l.Title
		photos[l.ID] = l.Photos.First()
	}
	return titles, photos, nil
}

func userNames(db *gorm.DB, ids map[uuid.UUID]bool) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	if len(ids) == 0 {
		return names, nil
	}
	var users []domain.User
	if err := db.Where("id IN ?", keys(ids)).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names, nil
}

func keys(m map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Thread returns the conversation between viewer and other about listingID, oldest first,
// and marks what viewer received as read.
func (s *Service) Thread(ctx context.Context, viewer, listingID, other uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := s.DB.WithContext(ctx).
		Where("listing_id = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			listingID, viewer, other, other, viewer).
		Order("created_at ASC").Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	if _, err := s.MarkRead(ctx, viewer, listingID, other); err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ReceiverID == viewer {
			msgs[i].Read = true
		}
	}
	return msgs, nil
}

// MarkRead flags messages from other to viewer on listingID as read and tells other.
func (s *Service) MarkRead(ctx context.Context, viewer, listingID, other uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("listing_id = ? AND sender_id = ? AND receiver_id = ? AND read = ?", listingID, other, viewer, false).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		payload := map[string]interface{}{"listing_id": listingID, "reader_id": viewer, "count": res.RowsAffected}
		if err := s.Hub.Publish(ctx, other, realtime.EventMessageRead, payload); err != nil {
			log.Warn().Err(err).Str("listing_id", listingID.String()).Msg("messages: realtime publish failed")
		}
	}
	return res.RowsAffected, nil
}

// UnreadCount counts messages waiting for userID.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false).Count(&n).Error
	return n, err
}
