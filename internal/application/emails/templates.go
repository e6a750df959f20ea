package emails

import (
	"fmt"

	"daloamarket-backend/internal/pkg/format"
)

// PaymentProofDetails is what support needs to match a mobile-money payment.
type PaymentProofDetails struct {
	ListingID string
	FullName  string
	Email     string
	Phone     string
	Amount    int64
}

// PaymentProofSubject is the subject of the support notification.
func PaymentProofSubject(listingID string) string {
	return "🆕 Paiement annonce à valider - ID " + listingID
}

const PaymentReceivedSubject = "✅ Preuve de paiement reçue - DaloaMarket"

// PaymentProofAdminHTML is sent to support with the screenshot attached.
func PaymentProofAdminHTML(d PaymentProofDetails) string {
	return EmailLayout(fmt.Sprintf(`
    <h2>Paiement annonce à valider</h2>
    <div class="details">
      <h3 style="margin-top: 0;">Détails de la demande</h3>
      <ul>
        <li>🆔 <strong>ID annonce:</strong> %s</li>
        <li>👤 <strong>Nom:</strong> %s</li>
        <li>📧 <strong>Email:</strong> %s</li>
        <li>📱 <strong>Téléphone:</strong> %s</li>
        <li>💰 <strong>Montant:</strong> %s</li>
      </ul>
    </div>
    <p class="muted">La capture d'écran du paiement est jointe à cet email.</p>
`, EscapeHTML(d.ListingID), EscapeHTML(d.FullName), EscapeHTML(d.Email), EscapeHTML(d.Phone), format.FormatPrice(d.Amount)))
}

// PaymentReceivedHTML confirms reception to the payer.
func PaymentReceivedHTML(listingID string) string {
	return EmailLayout(fmt.Sprintf(`
    <h2>Preuve de paiement reçue</h2>
    <p>Nous avons bien reçu votre preuve de paiement pour la publication de votre annonce.</p>
    <ul style="list-style: none; padding: 0;">
      <li>🆔 <strong>ID annonce:</strong> %s</li>
    </ul>
    <p>Notre équipe va vérifier votre paiement et publier votre annonce dans les plus brefs délais.</p>
    <p class="muted">Pour toute question, contactez-nous via la page d'aide de DaloaMarket.</p>
`, EscapeHTML(listingID)))
}

// CreditProofDetails describes a credit pack purchase awaiting validation.
type CreditProofDetails struct {
	TransactionID string
	UserID        string
	FullName      string
	Email         string
	Phone         string
	Credits       int
	Price         int64
}

func CreditProofSubject(credits int) string {
	return fmt.Sprintf("🆕 Achat de %d crédits à valider", credits)
}

// CreditProofAdminHTML is sent to support for a credit pack purchase.
func CreditProofAdminHTML(d CreditProofDetails) string {
	return EmailLayout(fmt.Sprintf(`
    <h2>Achat de crédits à valider</h2>
    <div class="details">
      <ul>
        <li>🧾 <strong>Transaction:</strong> %s</li>
        <li>🆔 <strong>Utilisateur:</strong> %s</li>
        <li>👤 <strong>Nom:</strong> %s</li>
        <li>📧 <strong>Email:</strong> %s</li>
        <li>📱 <strong>Téléphone:</strong> %s</li>
        <li>🎟️ <strong>Pack:</strong> %d crédits (%s)</li>
      </ul>
    </div>
    <p class="muted">La capture d'écran du paiement est jointe à cet email.</p>
`, EscapeHTML(d.TransactionID), EscapeHTML(d.UserID), EscapeHTML(d.FullName), EscapeHTML(d.Email),
		EscapeHTML(d.Phone), d.Credits, format.FormatPrice(d.Price)))
}

// SupportSubject prefixes the user-provided subject.
func SupportSubject(subject string) string {
	return "[Contact Support] " + subject
}

// SupportMessageHTML forwards a contact form submission.
func SupportMessageHTML(name, email, subject, message string) string {
	return EmailLayout(fmt.Sprintf(`
    <h2>Nouveau message de support</h2>
    <div class="details">
      <ul>
        <li>👤 <strong>Nom:</strong> %s</li>
        <li>📧 <strong>Email:</strong> %s</li>
        <li>📝 <strong>Sujet:</strong> %s</li>
      </ul>
    </div>
    <p>%s</p>
`, EscapeHTML(name), EscapeHTML(email), EscapeHTML(subject), nl2br(message)))
}

const LoginCodeSubject = "Votre code de connexion DaloaMarket"

// LoginCodeHTML carries a one-time login code.
func LoginCodeHTML(code string, minutes int) string {
	return EmailLayout(fmt.Sprintf(`
    <h2>Code de connexion</h2>
    <p>Utilisez ce code pour vous connecter à DaloaMarket :</p>
    <p class="code">%s</p>
    <p class="muted">Ce code expire dans %d minutes. Si vous n'avez pas demandé ce code, ignorez cet email.</p>
`, EscapeHTML(code), minutes))
}
