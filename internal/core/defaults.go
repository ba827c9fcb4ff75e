package core

// Built-in platforms. Fee rates are starting points only; the stored
// platform configuration overrides them.
const (
	PlatformBaemin      Platform = "BAEMIN"
	PlatformCoupangEats Platform = "COUPANG_EATS"
	PlatformYogiyo      Platform = "YOGIYO"
	PlatformStore       Platform = "STORE"
)

// DefaultPlatformConfigs returns the seed platform configuration used
// when no configuration has been saved yet.
func DefaultPlatformConfigs() PlatformConfigs {
	return PlatformConfigs{
		PlatformBaemin:      {ID: PlatformBaemin, Name: "배달의민족", FeeRate: 0.068},
		PlatformCoupangEats: {ID: PlatformCoupangEats, Name: "쿠팡이츠", FeeRate: 0.098},
		PlatformYogiyo:      {ID: PlatformYogiyo, Name: "요기요", FeeRate: 0.125},
		PlatformStore:       {ID: PlatformStore, Name: "홀/포장", FeeRate: 0},
	}
}

// DefaultMenus returns the seed menu list for a fresh ledger.
func DefaultMenus() []string {
	return []string{"닭강정", "후라이드", "양념치킨", "간장치킨", "콜라"}
}
