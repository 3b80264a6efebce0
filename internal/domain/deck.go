package domain

// Deck is an ordered collection of cards. The order of Cards is the display
// order and is only changed by explicit reorder operations.
type Deck struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Cards     []Card `json:"cards"`
	IsDeleted bool   `json:"isDeleted"`
}

// DeckDraft is the user-supplied content of a deck before it gets an id.
type DeckDraft struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// CardIndex returns the position of the card with the given id, or -1.
func (d Deck) CardIndex(id string) int {
	for i, c := range d.Cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// FindCard returns the card with the given id.
func (d Deck) FindCard(id string) (Card, bool) {
	i := d.CardIndex(id)
	if i < 0 {
		return Card{}, false
	}
	return d.Cards[i], true
}
