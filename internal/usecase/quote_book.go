package usecase

import (
	"sync"

	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
)

// QuoteBook keeps the most recent quote per symbol. Older quotes never overwrite newer ones.
type QuoteBook struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

var _ drepo.QuoteSource = (*QuoteBook)(nil)

func NewQuoteBook() *QuoteBook {
	return &QuoteBook{quotes: make(map[string]models.Quote)}
}

// Update stores q unless a newer quote for the symbol is already held.
func (b *QuoteBook) Update(q models.Quote) bool {
	if q.Symbol == "" || q.Price <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.quotes[q.Symbol]; ok && q.Timestamp.Before(cur.Timestamp) {
		return false
	}
	b.quotes[q.Symbol] = q
	return true
}

func (b *QuoteBook) Latest(symbol string) (models.Quote, bool) {
	b.mu.RLock()
	q, ok := b.quotes[symbol]
	b.mu.RUnlock()
	return q, ok
}
