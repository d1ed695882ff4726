package cart

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/money"
)

func item(restaurantID uuid.UUID, name string, cents int64) Item {
	return Item{DishID: uuid.New(), Name: name, UnitPriceCents: cents, RestaurantID: restaurantID}
}

func TestAddItemDistinctIDs(t *testing.T) {
	restaurant := uuid.New()
	c := New()
	prices := []int64{1000, 550, 1, 0, 1299}
	var want int64
	for i, price := range prices {
		if err := c.AddItem(item(restaurant, "dish", price)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		want += price
	}
	if c.Len() != len(prices) {
		t.Fatalf("expected %d lines, got %d", len(prices), c.Len())
	}
	if c.Total() != want {
		t.Fatalf("expected total %d, got %d", want, c.Total())
	}
}

func TestAddItemTwiceIncrementsQuantity(t *testing.T) {
	c := New()
	dish := item(uuid.New(), "pad thai", 1250)
	if err := c.AddItem(dish); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(dish); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", c.Len())
	}
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	if c.Total() != 2500 {
		t.Fatalf("expected total 2500, got %d", c.Total())
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	c := New()
	if err := c.AddItem(item(uuid.New(), "soup", 800)); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := c.Lines()
	c.RemoveItem(uuid.New())
	if c.Len() != len(before) || c.Total() != 800 {
		t.Fatalf("remove of missing id mutated cart: %+v total=%d", c.Lines(), c.Total())
	}
}

func TestRemoveItem(t *testing.T) {
	restaurant := uuid.New()
	a, b := item(restaurant, "a", 100), item(restaurant, "b", 200)
	c := New()
	_ = c.AddItem(a)
	_ = c.AddItem(b)
	c.RemoveItem(a.DishID)
	lines := c.Lines()
	if len(lines) != 1 || lines[0].DishID != b.DishID {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if c.Total() != 200 {
		t.Fatalf("expected total 200, got %d", c.Total())
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	restaurant := uuid.New()
	a, b := item(restaurant, "a", 1000), item(restaurant, "b", 550)
	c := New()
	_ = c.AddItem(a)
	_ = c.AddItem(b)

	for _, q := range []int{0, -3} {
		cc := FromSnapshot(c.Snapshot())
		if err := cc.UpdateQuantity(a.DishID, q); err != nil {
			t.Fatalf("update %d: %v", q, err)
		}
		if cc.Len() != 1 || cc.Lines()[0].DishID != b.DishID {
			t.Fatalf("quantity %d should remove line, got %+v", q, cc.Lines())
		}
		if cc.Total() != 550 {
			t.Fatalf("expected total 550 after removal, got %d", cc.Total())
		}
	}
}

func TestUpdateQuantityMissingIsNoop(t *testing.T) {
	c := New()
	_ = c.AddItem(item(uuid.New(), "a", 100))
	if err := c.UpdateQuantity(uuid.New(), 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Total() != 100 {
		t.Fatalf("unexpected total %d", c.Total())
	}
}

func TestUpdateQuantityRejectsTooLarge(t *testing.T) {
	c := New()
	dish := item(uuid.New(), "a", 100)
	_ = c.AddItem(dish)
	err := c.UpdateQuantity(dish.DishID, MaxLineQuantity+1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if c.Lines()[0].Quantity != 1 {
		t.Fatalf("quantity should be unchanged")
	}
}

func TestClearAlwaysEmpties(t *testing.T) {
	c := New()
	c.Clear()
	if !c.IsEmpty() || c.Total() != 0 {
		t.Fatalf("clear on empty cart should stay empty")
	}
	_ = c.AddItem(item(uuid.New(), "a", 999))
	_ = c.AddItem(item(c.RestaurantID(), "b", 1))
	c.Clear()
	if len(c.Lines()) != 0 || c.Total() != 0 {
		t.Fatalf("expected empty cart, got %+v total=%d", c.Lines(), c.Total())
	}
	if c.RestaurantID() != uuid.Nil {
		t.Fatalf("cleared cart should have no restaurant")
	}
}

func TestScenarioUpdateQuantityTotals(t *testing.T) {
	restaurant := uuid.New()
	a := item(restaurant, "A", 1000)
	b := item(restaurant, "B", 550)
	c := New()
	if err := c.AddItem(a); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if err := c.AddItem(b); err != nil {
		t.Fatalf("add B: %v", err)
	}
	if err := c.UpdateQuantity(a.DishID, 3); err != nil {
		t.Fatalf("update A: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].DishID != a.DishID || lines[0].Quantity != 3 {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].DishID != b.DishID || lines[1].Quantity != 1 {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
	if c.Total() != 3550 {
		t.Fatalf("expected 3550 cents, got %d", c.Total())
	}
	if money.FormatCents(c.Total()) != "35.50" {
		t.Fatalf("expected display 35.50, got %s", money.FormatCents(c.Total()))
	}
}

func TestAddItemFromOtherRestaurantRejected(t *testing.T) {
	r1, r2 := uuid.New(), uuid.New()
	c := New()
	first := item(r1, "burger", 900)
	if err := c.AddItem(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := c.Snapshot()

	err := c.AddItem(item(r2, "sushi", 1500))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["reason"] != "restaurant_mismatch" {
		t.Fatalf("unexpected details %v", typed.Details())
	}

	after := c.Snapshot()
	if len(after.Lines) != len(before.Lines) || after.Lines[0] != before.Lines[0] {
		t.Fatalf("cart changed after rejected add: %+v", after.Lines)
	}
	if c.Total() != 900 {
		t.Fatalf("total changed after rejected add: %d", c.Total())
	}
}

func TestAddItemValidatesInput(t *testing.T) {
	c := New()
	bad := []Item{
		{DishID: uuid.Nil, RestaurantID: uuid.New(), UnitPriceCents: 100},
		{DishID: uuid.New(), RestaurantID: uuid.Nil, UnitPriceCents: 100},
		{DishID: uuid.New(), RestaurantID: uuid.New(), UnitPriceCents: -1},
		{DishID: uuid.New(), RestaurantID: uuid.New(), UnitPriceCents: MaxUnitPriceCents + 1},
	}
	for i, it := range bad {
		if err := c.AddItem(it); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if !c.IsEmpty() {
		t.Fatalf("invalid adds should not mutate the cart")
	}
}

func TestValidate(t *testing.T) {
	if err := New().Validate(); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("empty cart should fail validation, got %v", err)
	}

	r1, r2 := uuid.New(), uuid.New()
	mixed := FromSnapshot(Snapshot{Lines: []Line{
		{DishID: uuid.New(), Name: "a", UnitPriceCents: 100, Quantity: 1, RestaurantID: r1},
		{DishID: uuid.New(), Name: "b", UnitPriceCents: 100, Quantity: 1, RestaurantID: r2},
	}})
	if err := mixed.Validate(); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("mixed cart should fail validation, got %v", err)
	}

	ok := New()
	_ = ok.AddItem(item(r1, "a", 100))
	if err := ok.Validate(); err != nil {
		t.Fatalf("single restaurant cart should validate, got %v", err)
	}
}

func TestFromSnapshotNormalizes(t *testing.T) {
	restaurant := uuid.New()
	dish := uuid.New()
	c := FromSnapshot(Snapshot{Lines: []Line{
		{DishID: dish, Name: "a", UnitPriceCents: 250, Quantity: 2, RestaurantID: restaurant},
		{DishID: uuid.New(), Name: "gone", UnitPriceCents: 999, Quantity: 0, RestaurantID: restaurant},
		{DishID: dish, Name: "a", UnitPriceCents: 250, Quantity: 1, RestaurantID: restaurant},
	}})
	if c.Len() != 1 {
		t.Fatalf("expected 1 normalized line, got %d", c.Len())
	}
	if c.Lines()[0].Quantity != 3 || c.Total() != 750 {
		t.Fatalf("unexpected normalized cart %+v total=%d", c.Lines(), c.Total())
	}
	if c.ItemCount() != 3 {
		t.Fatalf("expected item count 3, got %d", c.ItemCount())
	}
}

func TestFromSnapshotEnforcesLineBounds(t *testing.T) {
	restaurant := uuid.New()
	dish := uuid.New()
	c := FromSnapshot(Snapshot{Lines: []Line{
		{DishID: dish, Name: "a", UnitPriceCents: 100, Quantity: MaxLineQuantity, RestaurantID: restaurant},
		{DishID: dish, Name: "a", UnitPriceCents: 100, Quantity: 5, RestaurantID: restaurant},
		{DishID: uuid.New(), Name: "huge", UnitPriceCents: 1 << 62, Quantity: 4, RestaurantID: restaurant},
		{DishID: uuid.New(), Name: "negative", UnitPriceCents: -1, Quantity: 1, RestaurantID: restaurant},
		{DishID: uuid.New(), Name: "bulk", UnitPriceCents: 10, Quantity: MaxLineQuantity * 3, RestaurantID: restaurant},
	}})
	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected out-of-range prices dropped, got %+v", lines)
	}
	if lines[0].Quantity != MaxLineQuantity || lines[1].Quantity != MaxLineQuantity {
		t.Fatalf("expected quantities capped at %d, got %+v", MaxLineQuantity, lines)
	}
	if want := int64(MaxLineQuantity)*100 + int64(MaxLineQuantity)*10; c.Total() != want {
		t.Fatalf("expected total %d, got %d", want, c.Total())
	}
}

func TestOrderItemsMatchesTotal(t *testing.T) {
	restaurant := uuid.New()
	c := New()
	a := item(restaurant, "a", 333)
	_ = c.AddItem(a)
	_ = c.AddItem(a)
	_ = c.AddItem(item(restaurant, "b", 10))
	items := c.OrderItems()
	if items.TotalCents() != c.Total() {
		t.Fatalf("snapshot total %d != cart total %d", items.TotalCents(), c.Total())
	}
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New()
	_ = c.AddItem(item(uuid.New(), "a", 100))
	lines := c.Lines()
	lines[0].Quantity = 50
	if c.Lines()[0].Quantity != 1 {
		t.Fatalf("mutating Lines() result leaked into cart")
	}
}
