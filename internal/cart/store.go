package cart

import (
	"sync"

	"github.com/umistore/storefront/internal/domain"
)

// Store holds one cart per session key. All mutations for a session run
// under that session's lock, so two concurrent updates are applied in
// arrival order and the later one validates against the result of the
// earlier one. Sessions never share carts.
type Store struct {
	mu    sync.Mutex
	carts map[string]*sessionCart
}

type sessionCart struct {
	mu   sync.Mutex
	cart *Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]*sessionCart)}
}

func (s *Store) session(key string) *sessionCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.carts[key]
	if !ok {
		sc = &sessionCart{cart: New()}
		s.carts[key] = sc
	}
	return sc
}

// AddItem adds the product to the session's cart and returns the
// resulting quantity.
func (s *Store) AddItem(session string, product *domain.Product, quantity int) (int, error) {
	sc := s.session(session)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cart.AddItem(product, quantity)
}

// UpdateQuantity sets the quantity for an existing item; zero or less
// removes it and reports removal.
func (s *Store) UpdateQuantity(session string, product *domain.Product, quantity int) (removed bool, err error) {
	sc := s.session(session)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cart.UpdateQuantity(product, quantity)
}

func (s *Store) RemoveItem(session string, productID string) {
	sc := s.session(session)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cart.RemoveItem(productID)
}

// View returns a copy of the items and the totals in one consistent
// snapshot.
func (s *Store) View(session string) ([]domain.CartItem, domain.CartTotals) {
	sc := s.session(session)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cart.Items(), sc.cart.Totals()
}

// Items returns a copy of the session's cart contents for checkout.
func (s *Store) Items(session string) []domain.CartItem {
	sc := s.session(session)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cart.Items()
}

// Clear empties the session's cart and evicts it from the store.
func (s *Store) Clear(session string) {
	s.mu.Lock()
	sc, ok := s.carts[session]
	if ok {
		delete(s.carts, session)
	}
	s.mu.Unlock()

	if ok {
		sc.mu.Lock()
		sc.cart.Clear()
		sc.mu.Unlock()
	}
}
