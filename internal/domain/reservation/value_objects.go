package reservation

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrEmptyName    = errors.New("customer name is required")
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidEmail = errors.New("invalid email address")
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-]{7,14}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Contact is the customer triple attached to a reservation. Phone is
// the duplicate-booking key, so it is normalized before storage.
type Contact struct {
	name  string
	phone string
	email *string
}

func NewContact(name, phone string, email *string) (Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Contact{}, ErrEmptyName
	}

	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return Contact{}, ErrInvalidPhone
	}

	if email != nil {
		e := strings.TrimSpace(*email)
		if e == "" {
			email = nil
		} else {
			if !emailPattern.MatchString(e) {
				return Contact{}, ErrInvalidEmail
			}
			email = &e
		}
	}

	return Contact{name: name, phone: normalizePhone(phone), email: email}, nil
}

func (c Contact) Name() string   { return c.name }
func (c Contact) Phone() string  { return c.phone }
func (c Contact) Email() *string { return c.email }

// normalizePhone strips separators so "090-1234-5678" and "09012345678"
// count as the same customer for the duplicate guard.
func normalizePhone(phone string) string {
	return strings.ReplaceAll(phone, "-", "")
}

type Number string

// NewNumber generates a human-readable reservation number such as
// RSV-20260831-a1b2c3d4.
func NewNumber(now time.Time) Number {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return Number(fmt.Sprintf("RSV-%s-%08d", now.Format("20060102"), now.UnixNano()%100000000))
	}
	return Number(fmt.Sprintf("RSV-%s-%s", now.Format("20060102"), hex.EncodeToString(buf)))
}

func (n Number) String() string { return string(n) }

type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 { return m.cents }

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}
