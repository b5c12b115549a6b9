package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

var (
	cardNumberShape = regexp.MustCompile(`^\d{16}$`)
	cvvShape        = regexp.MustCompile(`^\d{3}$`)
)

type account struct {
	customer models.Customer
	password string
}

type libraryRow struct {
	libraryID    int
	audioID      int
	lastPosition float64
	completed    bool
}

// SandboxOptions configures a [Sandbox].
type SandboxOptions struct {
	// BaseURL is prefixed to catalog audio paths so clients can fetch them. Empty leaves paths relative.
	BaseURL string
	// LegacyLibraryShape omits the top-level audioId from library entries, leaving only the nested one.
	LegacyLibraryShape bool
	Logger             *log.Logger
}

// Sandbox is an in-memory implementation of the store API.
type Sandbox struct {
	opts   SandboxOptions
	logger *log.Logger

	mu        sync.Mutex
	books     map[int]models.Audiobook
	accounts  map[int]*account
	carts     map[int][]int
	libraries map[int][]libraryRow
	cards     map[int]models.PaymentCard
	orders    int
	nextID    map[string]int
}

// NewSandbox creates a sandbox stocked with books.
func NewSandbox(books []models.Audiobook, opts SandboxOptions) *Sandbox {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	s := &Sandbox{
		opts:      opts,
		logger:    opts.Logger,
		books:     make(map[int]models.Audiobook, len(books)),
		accounts:  make(map[int]*account),
		carts:     make(map[int][]int),
		libraries: make(map[int][]libraryRow),
		cards:     make(map[int]models.PaymentCard),
		nextID:    make(map[string]int),
	}
	for _, b := range books {
		b.AudioFile = s.absolute(b.AudioFile)
		b.ShortClip = s.absolute(b.ShortClip)
		s.books[b.AudioID] = b
	}
	return s
}

// SetBaseURL prefixes relative audio paths with baseURL. Use it when the listen address is only known
// after the sandbox is built, as with httptest.
func (s *Sandbox) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.BaseURL = baseURL
	for id, b := range s.books {
		b.AudioFile = s.absolute(b.AudioFile)
		b.ShortClip = s.absolute(b.ShortClip)
		s.books[id] = b
	}
}

func (s *Sandbox) absolute(p *string) *string {
	if p == nil || !strings.HasPrefix(*p, "/") || s.opts.BaseURL == "" {
		return p
	}
	url := strings.TrimRight(s.opts.BaseURL, "/") + *p
	return &url
}

// Routes registers every store endpoint on r, plus the media handler.
func (s *Sandbox) Routes(r Router) {
	r.Handle(http.MethodGet, "/api/audiobooks", http.HandlerFunc(s.listBooks))
	r.Handle(http.MethodGet, "/api/audiobooks/search", http.HandlerFunc(s.searchBooks))
	r.Handle(http.MethodGet, "/api/audiobooks/author/{authorId}", http.HandlerFunc(s.booksByAuthor))
	r.Handle(http.MethodGet, "/api/audiobooks/{audioId}", http.HandlerFunc(s.getBook))

	r.Handle(http.MethodPost, "/api/customers/register", http.HandlerFunc(s.register))
	r.Handle(http.MethodPost, "/api/customers/login", http.HandlerFunc(s.login))
	r.Handle(http.MethodGet, "/api/customers/{customerId}", http.HandlerFunc(s.profile))
	r.Handle(http.MethodPut, "/api/customers/change-password", http.HandlerFunc(s.changePassword))
	r.Handle(http.MethodPut, "/api/customers/forgot-password", http.HandlerFunc(s.forgotPassword))

	r.Handle(http.MethodGet, "/api/carts/{customerId}", http.HandlerFunc(s.getCart))
	r.Handle(http.MethodPost, "/api/carts/{customerId}/add/{audioId}", http.HandlerFunc(s.addToCart))
	r.Handle(http.MethodDelete, "/api/carts/{customerId}/remove/{audioId}", http.HandlerFunc(s.removeFromCart))

	r.Handle(http.MethodGet, "/api/library/{customerId}", http.HandlerFunc(s.getLibrary))
	r.Handle(http.MethodDelete, "/api/library/{customerId}/{audioId}", http.HandlerFunc(s.removeFromLibrary))

	r.Handle(http.MethodPost, "/api/payment-cards", http.HandlerFunc(s.addCard))
	r.Handle(http.MethodGet, "/api/payment-cards/customer/{customerId}", http.HandlerFunc(s.listCards))
	r.Handle(http.MethodDelete, "/api/payment-cards/{cardId}", http.HandlerFunc(s.deleteCard))

	r.Handle(http.MethodPost, "/api/orders/{customerId}/place", http.HandlerFunc(s.placeOrder))

	r.Handler(NewMediaHandler(s))
}

// Book returns a catalog item.
func (s *Sandbox) Book(audioID int) (models.Audiobook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[audioID]
	return b, ok
}

func (s *Sandbox) next(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeText(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, message)
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return v, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

func (s *Sandbox) sortedBooks(keep func(models.Audiobook) bool) []models.Audiobook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Audiobook{}
	for _, b := range s.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Audiobook) int { return a.AudioID - b.AudioID })
	return out
}

func (s *Sandbox) listBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sortedBooks(func(models.Audiobook) bool { return true }))
}

func (s *Sandbox) searchBooks(w http.ResponseWriter, r *http.Request) {
	title := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("title")))
	writeJSON(w, http.StatusOK, s.sortedBooks(func(b models.Audiobook) bool {
		return strings.Contains(strings.ToLower(b.Title), title)
	}))
}

func (s *Sandbox) booksByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, ok := pathInt(w, r, "authorId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sortedBooks(func(b models.Audiobook) bool {
		return b.AuthorID != nil && *b.AuthorID == authorID
	}))
}

func (s *Sandbox) getBook(w http.ResponseWriter, r *http.Request) {
	audioID, ok := pathInt(w, r, "audioId")
	if !ok {
		return
	}
	b, found := s.Book(audioID)
	if !found {
		writeError(w, http.StatusNotFound, "Audiobook not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Sandbox) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.customer.Username == req.Username {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		if strings.EqualFold(a.customer.Email, req.Email) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}

	c := models.Customer{CustomerID: s.next("customer"), Username: req.Username, Name: req.Name, Email: req.Email}
	s.accounts[c.CustomerID] = &account{customer: c, password: req.Password}
	s.logger.Info("customer registered", "customer_id", c.CustomerID, "username", c.Username)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Sandbox) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.customer.Username == req.Username && a.password == req.Password {
			writeJSON(w, http.StatusOK, a.customer)
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid username or password")
}

func (s *Sandbox) profile(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathInt(w, r, "customerId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.accounts[customerID]
	if !found {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	writeJSON(w, http.StatusOK, a.customer)
}

func (s *Sandbox) changePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.accounts[req.CustomerID]
	if !found {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "New password is required")
		return
	}
	a.password = req.NewPassword
	writeText(w, "Password changed successfully")
}

func (s *Sandbox) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.customer.Email, req.Email) {
			a.password = req.NewPassword
			writeText(w, "Password reset successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Customer not found with this email")
}

// customer checks that customerId names an account. It must be called with s.mu held.
func (s *Sandbox) customer(w http.ResponseWriter, r *http.Request) (int, bool) {
	customerID, ok := pathInt(w, r, "customerId")
	if !ok {
		return 0, false
	}
	if _, found := s.accounts[customerID]; !found {
		writeError(w, http.StatusNotFound, "Customer not found")
		return 0, false
	}
	return customerID, true
}

func (s *Sandbox) cartOf(customerID int) models.Cart {
	cart := models.Cart{CartID: customerID, CustomerID: customerID, Items: []models.CartItem{}}
	for i, id := range s.carts[customerID] {
		cart.Items = append(cart.Items, models.CartItem{
			CartEntryID: customerID*1000 + i + 1,
			CartID:      customerID,
			AudioID:     id,
			Item:        s.books[id],
		})
	}
	return cart
}

func (s *Sandbox) owns(customerID, audioID int) bool {
	return slices.ContainsFunc(s.libraries[customerID], func(row libraryRow) bool { return row.audioID == audioID })
}

func (s *Sandbox) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cartOf(customerID))
}

func (s *Sandbox) addToCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	audioID, ok := pathInt(w, r, "audioId")
	if !ok {
		return
	}

	switch {
	case s.books[audioID].AudioID == 0:
		writeError(w, http.StatusNotFound, "Audiobook not found")
	case s.owns(customerID, audioID):
		writeError(w, http.StatusBadRequest, "Audiobook already purchased")
	case slices.Contains(s.carts[customerID], audioID):
		writeError(w, http.StatusBadRequest, "Audiobook already in cart")
	default:
		s.carts[customerID] = append(s.carts[customerID], audioID)
		writeJSON(w, http.StatusOK, s.cartOf(customerID))
	}
}

func (s *Sandbox) removeFromCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	audioID, ok := pathInt(w, r, "audioId")
	if !ok {
		return
	}
	if !slices.Contains(s.carts[customerID], audioID) {
		writeError(w, http.StatusNotFound, "Audiobook not in cart")
		return
	}
	s.carts[customerID] = slices.DeleteFunc(s.carts[customerID], func(id int) bool { return id == audioID })
	writeJSON(w, http.StatusOK, s.cartOf(customerID))
}

func (s *Sandbox) getLibrary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}

	out := make([]map[string]any, 0, len(s.libraries[customerID]))
	for _, row := range s.libraries[customerID] {
		entry := map[string]any{
			"libraryId":    row.libraryID,
			"customerId":   customerID,
			"audiobook":    s.books[row.audioID],
			"lastPosition": row.lastPosition,
			"isCompleted":  row.completed,
		}
		if !s.opts.LegacyLibraryShape {
			entry["audioId"] = row.audioID
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Sandbox) removeFromLibrary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	audioID, ok := pathInt(w, r, "audioId")
	if !ok {
		return
	}
	if !s.owns(customerID, audioID) {
		writeError(w, http.StatusNotFound, "Audiobook not in library")
		return
	}
	s.libraries[customerID] = slices.DeleteFunc(s.libraries[customerID], func(row libraryRow) bool { return row.audioID == audioID })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Sandbox) addCard(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if !decode(w, r, &req) {
		return
	}

	switch {
	case !cardNumberShape.MatchString(req.CardNumber):
		writeError(w, http.StatusBadRequest, "Card number must be 16 digits")
		return
	case !cvvShape.MatchString(req.CVV):
		writeError(w, http.StatusBadRequest, "Invalid CVV")
		return
	case req.CardType != models.CreditCard && req.CardType != models.DebitCard:
		writeError(w, http.StatusBadRequest, "Invalid card type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.accounts[req.CustomerID]; !found {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	card := models.PaymentCard{
		CardID:         s.next("card"),
		CustomerID:     req.CustomerID,
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		ExpiryDate:     req.ExpiryDate,
		CardType:       req.CardType,
	}
	s.cards[card.CardID] = card
	writeJSON(w, http.StatusCreated, card)
}

func (s *Sandbox) listCards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	out := []models.PaymentCard{}
	for _, c := range s.cards {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.PaymentCard) int { return a.CardID - b.CardID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Sandbox) deleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathInt(w, r, "cardId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.cards[cardID]; !found {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	delete(s.cards, cardID)
	w.WriteHeader(http.StatusNoContent)
}

// Order is the body returned by a placed order.
type Order struct {
	OrderID       int     `json:"orderId"`
	CustomerID    int     `json:"customerId"`
	PaymentMethod string  `json:"paymentMethod"`
	TotalAmount   float64 `json:"totalAmount"`
	Discount      float64 `json:"discount"`
	FinalAmount   float64 `json:"finalAmount"`
	Items         []int   `json:"audioIds"`
	Status        string  `json:"status"`
}

func (s *Sandbox) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	if !cvvShape.MatchString(req.CVV) {
		writeError(w, http.StatusBadRequest, "Invalid CVV")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	customerID, ok := s.customer(w, r)
	if !ok {
		return
	}
	items := s.carts[customerID]
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	rate := 0.10
	if req.PaymentMethod == models.DebitCard {
		rate = 0.05
	}
	total := 0.0
	for _, id := range items {
		total += s.books[id].Price
		s.libraries[customerID] = append(s.libraries[customerID], libraryRow{libraryID: s.next("library"), audioID: id})
	}
	final := math.Round(total*(1-rate)*100) / 100

	s.orders++
	order := Order{
		OrderID:       s.orders,
		CustomerID:    customerID,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   total,
		Discount:      math.Round((total-final)*100) / 100,
		FinalAmount:   final,
		Items:         slices.Clone(items),
		Status:        "PLACED",
	}
	s.carts[customerID] = nil
	s.logger.Info("order placed", "customer_id", customerID, "items", len(items), "final", final)
	writeJSON(w, http.StatusOK, order)
}
