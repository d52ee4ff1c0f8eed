package models

import "github.com/shopspring/decimal"

// DefaultWaves returns the four preset tiers seeded into a fresh store.
// The first tier starts active.
func DefaultWaves() []Wave {
	return []Wave{
		{ID: "wave-1", Name: "Wave 1", Price: decimal.NewFromInt(1100), Deduction: decimal.NewFromInt(100), MaxTickets: 50, Active: true},
		{ID: "wave-2", Name: "Wave 2", Price: decimal.NewFromInt(1600), Deduction: decimal.NewFromInt(200), MaxTickets: 100},
		{ID: "wave-3", Name: "Wave 3", Price: decimal.NewFromInt(2200), Deduction: decimal.NewFromInt(300), MaxTickets: 50},
		{ID: "wave-4", Name: "On Door", Price: decimal.NewFromInt(3000), Deduction: decimal.NewFromInt(400), MaxTickets: 100},
	}
}

// AdminSeed is a plaintext staff credential used only while seeding a fresh
// store; the stored Admin row carries a bcrypt hash, never the password.
type AdminSeed struct {
	ID       string
	Username string
	Password string
	Role     Role
}

func DefaultAdmins() []AdminSeed {
	return []AdminSeed{
		{ID: "admin-1", Username: "Admin", Password: "Flux_9174", Role: RoleAdmin},
		{ID: "sec-1", Username: "Security", Password: "Secure_8749", Role: RoleSecurity},
	}
}

// Terms shown to guests before registration. Acceptance is confirmed in the
// UI; the core only serves the text.
var Terms = []string{
	"Alcohol is for only people over 18 years old.",
	"Fighting or aggressive behavior will get you kicked out and you will have to pay 200 EGP.",
	"Weapons are not allowed; if security sees one, it will be confiscated and can be returned at the end of the party for a 50 EGP fee.",
	"Listen to staff and security at all times.",
	"Respect other guests and maintain a safe environment.",
	"Do not engage in illegal activity or vandalism.",
	"Lost or stolen items are your responsibility.",
	"We are not liable for any injuries or incidents that happen in the party.",
	"No refunds will be given under any circumstances.",
}
