package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	themePrimary  = "#FF7F00"
	themeTextMain = "#1F2937"
	themeMuted    = "#6B7280"
	themeBgBody   = "#F3F4F6"
	themeWhite    = "#FFFFFF"
	siteURL       = "https://daloamarket.shop"
)

// EmailLayout wraps content in the DaloaMarket HTML frame.
func EmailLayout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>DaloaMarket</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: Arial, Helvetica, sans-serif; color: %s; line-height: 1.6; }
    .content h2 { margin-top: 0; color: %s; }
    .details { background-color: %s; padding: 15px; border-radius: 8px; margin: 20px 0; }
    .details ul { list-style: none; padding: 0; margin: 0; }
    .muted { color: %s; font-size: 14px; }
    .code { font-size: 28px; letter-spacing: 6px; font-weight: 700; color: %s; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background-color: %s;">
    <tr>
      <td align="center" style="padding: 32px 0;">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %s; border-radius: 8px;">
          <tr>
            <td align="center" style="padding: 28px 0 8px 0;">
              <a href="%s" style="font-size: 22px; font-weight: 700; color: %s; text-decoration: none;">DaloaMarket</a>
            </td>
          </tr>
          <tr>
            <td class="content" style="padding: 16px 40px 24px 40px;">%s</td>
          </tr>
          <tr>
            <td align="center" style="padding: 16px 40px 28px 40px;">
              <p class="muted" style="margin: 0;">© %d DaloaMarket · Daloa, Côte d'Ivoire</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themeBgBody, themeMuted, themePrimary,
		themeBgBody, themeWhite, siteURL, themePrimary, contentHTML, year)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

// nl2br escapes s and keeps its line breaks.
func nl2br(s string) string {
	return strings.ReplaceAll(EscapeHTML(s), "\n", "<br>")
}
