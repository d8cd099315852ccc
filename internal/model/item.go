package model

import "fmt"

// Rarity is the item quality level, ordered from least to most valuable.
type Rarity uint8

const (
	RarityPoor Rarity = iota
	RarityNormal
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityArtifact
)

// RarityCount is the number of supported rarity levels.
const RarityCount = 7

// MaxRarity is the highest rarity the agent will list or bid on.
const MaxRarity = RarityArtifact

var rarityColors = [RarityCount]string{"grey", "white", "green", "blue", "purple", "orange", "yellow"}

// Supported reports whether r is inside the supported range.
func (r Rarity) Supported() bool { return r <= MaxRarity }

// Color returns the conventional color name used by the admin surface.
func (r Rarity) Color() string {
	if !r.Supported() {
		return fmt.Sprintf("rarity(%d)", r)
	}
	return rarityColors[r]
}

func (r Rarity) String() string { return r.Color() }

// ParseRarity resolves a color name ("grey", "white", ...) to a Rarity.
func ParseRarity(color string) (Rarity, error) {
	for i, c := range rarityColors {
		if c == color {
			return Rarity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", color)
}

// Category splits every rarity into two bins.
type Category uint8

const (
	CategoryTradeGood Category = iota
	CategoryEquipment
)

func (c Category) String() string {
	if c == CategoryTradeGood {
		return "tradegood"
	}
	return "equipment"
}

// Item classes the engines care about.
const (
	ItemClassProjectile uint32 = 6
	ItemClassTradeGoods uint32 = 7
)

// BinKey tags one of the 14 rarity x category bins.
type BinKey struct {
	Rarity   Rarity
	Category Category
}

// BinCount is the number of distinct bins.
const BinCount = RarityCount * 2

// Index maps the key onto [0, BinCount). Trade goods occupy the first seven
// slots, matching the order the admin surface accepts percentages in.
func (k BinKey) Index() int {
	return int(k.Category)*RarityCount + int(k.Rarity)
}

func (k BinKey) String() string {
	return k.Rarity.Color() + "/" + k.Category.String()
}

// BinFromIndex is the inverse of BinKey.Index.
func BinFromIndex(i int) BinKey {
	return BinKey{Rarity: Rarity(i % RarityCount), Category: Category(i / RarityCount)}
}

// ScanOrder lists the bins in selection priority: rarity ascending, equipment
// before trade goods within each rarity.
var ScanOrder = func() [BinCount]BinKey {
	var order [BinCount]BinKey
	for r := 0; r < RarityCount; r++ {
		order[2*r] = BinKey{Rarity: Rarity(r), Category: CategoryEquipment}
		order[2*r+1] = BinKey{Rarity: Rarity(r), Category: CategoryTradeGood}
	}
	return order
}()

// ItemTemplate is the catalog view of an item.
type ItemTemplate struct {
	ID        uint32 `db:"id" yaml:"id"`
	Name      string `db:"name" yaml:"name"`
	BuyPrice  uint64 `db:"buy_price" yaml:"buy_price"`
	SellPrice uint64 `db:"sell_price" yaml:"sell_price"`
	Rarity    Rarity `db:"rarity" yaml:"rarity"`
	Class     uint32 `db:"class" yaml:"class"`
	MaxStack  uint32 `db:"max_stack" yaml:"max_stack"`
}

// Category classifies the template into equipment or trade goods.
func (t ItemTemplate) Category() Category {
	if t.Class == ItemClassTradeGoods {
		return CategoryTradeGood
	}
	return CategoryEquipment
}

// Bin returns the bin the template belongs to.
func (t ItemTemplate) Bin() BinKey {
	return BinKey{Rarity: t.Rarity, Category: t.Category()}
}

// ItemHandle is an instantiated item owned by an actor.
type ItemHandle struct {
	GUID           uint64
	Template       uint32
	Count          uint32
	Owner          ActorID
	RandomProperty int32
}
