package character

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int
	Max int
}

// Contains reports whether v lies in [Min, Max].
func (r IntRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }

var statRanges = map[Rarity]IntRange{
	Common:    {5, 10},
	Uncommon:  {8, 15},
	Rare:      {12, 20},
	Epic:      {18, 28},
	Legendary: {25, 40},
}

var bondRanges = map[Rarity]IntRange{
	Common:    {10, 50},
	Uncommon:  {20, 50},
	Rare:      {30, 50},
	Epic:      {38, 50},
	Legendary: {45, 50},
}

// StatRange returns the base-stat range for r. Unknown tiers use the Common range.
func StatRange(r Rarity) IntRange {
	if rg, ok := statRanges[r]; ok {
		return rg
	}
	return statRanges[Common]
}

// BondRange returns the bond range for r. Unknown tiers use the Common range.
func BondRange(r Rarity) IntRange {
	if rg, ok := bondRanges[r]; ok {
		return rg
	}
	return bondRanges[Common]
}

// Races enumerates the playable races.
var Races = []string{
	"human", "elf", "demon", "angel", "vampire", "kitsune", "neko", "dragon", "android", "spirit",
}

// Professions enumerates character professions.
var Professions = []string{
	"mage", "knight", "healer", "idol", "assassin", "scholar", "chef", "archer", "merchant", "engineer",
}

// Nationality pairs an identifier with the display name used in image paths.
type Nationality struct {
	ID      string
	Display string
}

// Nationalities enumerates character nationalities.
var Nationalities = []Nationality{
	{"japan", "Japanese"},
	{"korea", "Korean"},
	{"china", "Chinese"},
	{"russia", "Russian"},
	{"france", "French"},
	{"germany", "German"},
	{"usa", "American"},
	{"brazil", "Brazilian"},
	{"italy", "Italian"},
	{"sweden", "Swedish"},
}

// NationalityDisplay returns the display name for id, or id itself when unknown.
func NationalityDisplay(id string) string {
	for _, n := range Nationalities {
		if n.ID == id {
			return n.Display
		}
	}
	return id
}

var namePools = map[string][]string{
	"japan":   {"Sakura", "Yuki", "Hana", "Aiko", "Rin", "Mio", "Haruka", "Akane", "Nanami", "Kaede"},
	"korea":   {"Ji-woo", "Seo-yeon", "Min-ji", "Ha-eun", "Yuna", "Soo-ah", "Da-eun", "Chae-won"},
	"china":   {"Mei", "Lian", "Xiu", "Ying", "Lan", "Jing", "Hua", "Ning"},
	"russia":  {"Anastasia", "Katya", "Natasha", "Olga", "Svetlana", "Irina", "Daria", "Milena"},
	"france":  {"Amelie", "Camille", "Chloe", "Margaux", "Elise", "Manon", "Juliette", "Noemie"},
	"germany": {"Greta", "Lena", "Mia", "Hanna", "Frieda", "Klara", "Ida", "Emma"},
	"usa":     {"Madison", "Ashley", "Taylor", "Brooke", "Hailey", "Savannah", "Riley", "Avery"},
	"brazil":  {"Ana", "Beatriz", "Larissa", "Gabriela", "Luana", "Yasmin", "Isadora", "Bianca"},
	"italy":   {"Giulia", "Chiara", "Francesca", "Sofia", "Alessia", "Martina", "Aurora", "Bianca"},
	"sweden":  {"Astrid", "Freja", "Saga", "Linnea", "Elsa", "Maja", "Ebba", "Alva"},
}

var fallbackNames = []string{"Aria", "Luna", "Nova", "Stella"}

// NamePool returns the name pool for nationality id, or a generic pool when unknown.
func NamePool(id string) []string {
	if p, ok := namePools[id]; ok && len(p) > 0 {
		return p
	}
	return fallbackNames
}

// Tags is the shared cosmetic tag pool.
var Tags = []string{
	"tsundere", "kuudere", "dandere", "yandere", "genki", "cool", "shy", "cheerful",
	"mysterious", "elegant", "clumsy", "bookworm", "gamer", "sporty", "gourmet", "sleepy",
}

const (
	minTags = 2
	maxTags = 4
)
