// Package catalog holds the fixed reference data shared by listing validation and the clients.
package catalog

// Option is an id/label pair rendered by the clients.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CreditPack is a manually purchased bundle of publishing credits.
type CreditPack struct {
	Credits int   `json:"credits"`
	Price   int64 `json:"price"`
}

const (
	MinPrice       = 200
	MaxPhotos      = 5
	MaxPhotoBytes  = 5 * 1024 * 1024
	ItemsPerPage   = 12
	MaxMessageSize = 2000
)

var Categories = []Option{
	{ID: "fashion", Label: "Mode & Accessoires"},
	{ID: "electronics", Label: "Électronique & High-tech"},
	{ID: "home", Label: "Maison & Jardin"},
	{ID: "vehicles", Label: "Auto & Moto"},
	{ID: "sports", Label: "Sports & Loisirs"},
	{ID: "books", Label: "Livres & Culture"},
}

var Conditions = []Option{
	{ID: "new", Label: "Neuf"},
	{ID: "like_new", Label: "Très bon état"},
	{ID: "good", Label: "Bon état"},
	{ID: "used", Label: "Usagé"},
}

// Districts are the neighborhoods of Daloa.
var Districts = []string{
	"Abattoir 1",
	"Abattoir 2 (Sud B)",
	"Aviation",
	"Baoulé",
	"Belleville",
	"Bribouo",
	"CAFOP",
	"Commerce",
	"Dalolabia",
	"Dioulabougou",
	"Gbeuliville",
	"Gbokora",
	"Gbobélé",
	"Huberson",
	"Kennedy 1",
	"Kennedy 2",
	"Kirman",
	"Lobia",
	"Marais",
	"Orly 1",
	"Piscine",
	"Sapia",
	"Soleil 1",
	"Soleil 2",
	"Sud A",
	"Tagoura",
	"Tazibouo",
	"Tazibouo Piscine",
	"Zakoua",
}

var CreditPacks = []CreditPack{
	{Credits: 3, Price: 500},
	{Credits: 10, Price: 1500},
	{Credits: 30, Price: 3500},
}

func IsCategory(id string) bool {
	return hasOption(Categories, id)
}

func IsCondition(id string) bool {
	return hasOption(Conditions, id)
}

func IsDistrict(name string) bool {
	for _, d := range Districts {
		if d == name {
			return true
		}
	}
	return false
}

// PackFor returns the pack granting credits, if it exists.
func PackFor(credits int) (CreditPack, bool) {
	for _, p := range CreditPacks {
		if p.Credits == credits {
			return p, true
		}
	}
	return CreditPack{}, false
}

// CategoryLabel returns the French label or the id itself for unknown ids.
func CategoryLabel(id string) string {
	for _, o := range Categories {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

func hasOption(opts []Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}
