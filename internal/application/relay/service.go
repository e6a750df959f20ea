// Package relay forwards payment proofs and contact requests to the support mailbox.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/application/emails"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrMissingData   = errors.New("Données manquantes")
	ErrMissingFields = errors.New("Champs manquants")
	ErrUserNotFound  = errors.New("Utilisateur introuvable")
)

const defaultScreenshotName = "screenshot.png"

// Service sends the relay emails. DB and Credits are optional for the public listing relay.
type Service struct {
	DB           *gorm.DB
	Emails       emails.Sender
	Credits      *credits.Service
	SupportEmail string
	ListingFee   int64
}

// ListingProofInput is the payment proof posted after a pending listing.
type ListingProofInput struct {
	ListingID          string `json:"listingId"`
	FullName           string `json:"fullName"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	ScreenshotBase64   string `json:"screenshotBase64"`
	ScreenshotFilename string `json:"screenshotFilename"`
}

// ListingProof mails the proof to support, confirms to the payer and records a pending payment.
// It returns the provider id of the support email.
func (s *Service) ListingProof(ctx context.Context, in ListingProofInput) (string, error) {
	in.ListingID = strings.TrimSpace(in.ListingID)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.ListingID == "" || in.FullName == "" || in.Email == "" || in.Phone == "" || in.ScreenshotBase64 == "" {
		return "", ErrMissingData
	}
	if s.Emails == nil {
		return "", emails.ErrNotConfigured
	}

	id, err := s.Emails.Send(ctx, emails.Message{
		To:      []string{s.SupportEmail},
		Subject: emails.PaymentProofSubject(in.ListingID),
		HTML: emails.PaymentProofAdminHTML(emails.PaymentProofDetails{
			ListingID: in.ListingID,
			FullName:  in.FullName,
			Email:     in.Email,
			Phone:     in.Phone,
			Amount:    s.ListingFee,
		}),
		Attachments: []emails.Attachment{screenshot(in.ScreenshotBase64, in.ScreenshotFilename)},
		Tags:        []emails.Tag{{Name: "category", Value: "listing_payment"}},
	})
	metrics.RecordEmail("listing_proof", err)
	if err != nil {
		return "", err
	}

	if err := s.recordListingPayment(ctx, in); err != nil {
		log.Error().Err(err).Str("listing_id", in.ListingID).Msg("relay: failed to record listing payment")
	}

	_, err = s.Emails.Send(ctx, emails.Message{
		To:      []string{in.Email},
		Subject: emails.PaymentReceivedSubject,
		HTML:    emails.PaymentReceivedHTML(in.ListingID),
		Tags:    []emails.Tag{{Name: "category", Value: "payment_receipt"}},
	})
	metrics.RecordEmail("payment_receipt", err)
	if err != nil {
		return "", err
	}
	return id, nil
}

// recordListingPayment writes one pending listing_payment per pending listing.
// Unknown or already published listings are ignored: the mail alone reaches support.
func (s *Service) recordListingPayment(ctx context.Context, in ListingProofInput) error {
	if s.DB == nil {
		return nil
	}
	listingID, err := uuid.Parse(in.ListingID)
	if err != nil {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Listing
		if err := tx.Where("id = ?", listingID).First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if l.Status != domain.ListingPending {
			return nil
		}
		var n int64
		if err := tx.Model(&domain.Transaction{}).
			Where("listing_id = ? AND type = ? AND status = ?", listingID, domain.TxListingPayment, domain.TxPending).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		meta, _ := json.Marshal(map[string]string{"full_name": in.FullName, "email": in.Email, "phone": in.Phone})
		return tx.Create(&domain.Transaction{
			UserID:    l.UserID,
			ListingID: &listingID,
			Amount:    s.ListingFee,
			Type:      domain.TxListingPayment,
			Status:    domain.TxPending,
			Meta:      datatypes.JSON(meta),
		}).Error
	})
}

// CreditProofInput is a signed-in member's proof for a credit pack.
type CreditProofInput struct {
	PackCredits        int    `json:"pack_credits"`
	Phone              string `json:"phone"`
	ScreenshotBase64   string `json:"screenshotBase64"`
	ScreenshotFilename string `json:"screenshotFilename"`
}

// CreditProof records a pending pack purchase and mails support. The pending line is
// dropped again when the mail cannot be sent.
func (s *Service) CreditProof(ctx context.Context, userID uuid.UUID, in CreditProofInput) (*domain.Transaction, error) {
	if in.ScreenshotBase64 == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, ErrMissingData
	}
	if s.Emails == nil {
		return nil, emails.ErrNotConfigured
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	t, pack, err := s.Credits.RequestPack(ctx, userID, in.PackCredits, strings.TrimSpace(in.Phone))
	if err != nil {
		return nil, err
	}

	_, err = s.Emails.Send(ctx, emails.Message{
		To:      []string{s.SupportEmail},
		Subject: emails.CreditProofSubject(pack.Credits),
		HTML: emails.CreditProofAdminHTML(emails.CreditProofDetails{
			TransactionID: t.ID.String(),
			UserID:        u.ID.String(),
			FullName:      u.FullName,
			Email:         u.Email,
			Phone:         in.Phone,
			Credits:       pack.Credits,
			Price:         pack.Price,
		}),
		ReplyTo:     u.Email,
		Attachments: []emails.Attachment{screenshot(in.ScreenshotBase64, in.ScreenshotFilename)},
		Tags:        []emails.Tag{{Name: "category", Value: "credit_purchase"}},
	})
	metrics.RecordEmail("credit_proof", err)
	if err != nil {
		if delErr := s.DB.WithContext(ctx).Delete(&domain.Transaction{}, "id = ?", t.ID).Error; delErr != nil {
			log.Error().Err(delErr).Str("transaction_id", t.ID.String()).Msg("relay: failed to drop pending purchase")
		}
		return nil, err
	}
	return t, nil
}

// SupportInput is the contact form.
type SupportInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Support forwards the contact form; replies go straight to the sender.
func (s *Service) Support(ctx context.Context, in SupportInput) error {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	subject := strings.TrimSpace(in.Subject)
	if name == "" || email == "" || subject == "" || strings.TrimSpace(in.Message) == "" {
		return ErrMissingFields
	}
	if s.Emails == nil {
		return emails.ErrNotConfigured
	}
	_, err := s.Emails.Send(ctx, emails.Message{
		To:      []string{s.SupportEmail},
		Subject: emails.SupportSubject(subject),
		HTML:    emails.SupportMessageHTML(name, email, subject, in.Message),
		ReplyTo: email,
		Tags:    []emails.Tag{{Name: "category", Value: "support"}},
	})
	metrics.RecordEmail("support", err)
	return err
}

// screenshot strips a data URL prefix ("data:image/png;base64,") when present.
func screenshot(data, filename string) emails.Attachment {
	if i := strings.LastIndex(data, ";base64,"); i >= 0 {
		data = data[i+len(";base64,"):]
	}
	if strings.TrimSpace(filename) == "" {
		filename = defaultScreenshotName
	}
	return emails.Attachment{Filename: filename, ContentBase64: data}
}
