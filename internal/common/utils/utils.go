// Package utils provides shared helper functions.
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// GenerateWithdrawalNo builds a withdrawal number: prefix + timestamp + 6
// random digits.
func GenerateWithdrawalNo(prefix string) string {
	now := time.Now()
	return fmt.Sprintf("%s%s%s", prefix, now.Format("20060102150405"), GenerateRandomNumber(6))
}

// GenerateRandomNumber returns a random numeric string of the given length.
func GenerateRandomNumber(length int) string {
	var result strings.Builder
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		result.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return result.String()
}

// GenerateRandomCode returns a random OTP code of the given length.
func GenerateRandomCode(length int) string {
	return GenerateRandomNumber(length)
}

// GenerateAffiliateCode returns a referral code without ambiguous characters.
func GenerateAffiliateCode(length int) string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // excludes 0OI1
	var result strings.Builder
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result.WriteByte(charset[n.Int64()])
	}
	return result.String()
}

// ValidateEmail reports whether email has a plausible address shape.
func ValidateEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	matched, _ := regexp.MatchString(pattern, email)
	return matched
}

// MaskEmail hides the local part of an address except its first characters:
// "nguyenvana@gmail.com" -> "ng********@gmail.com". Two characters are kept
// when the local part allows it, otherwise one.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	keep := 2
	if len(local) <= 2 {
		keep = 1
	}
	return local[:keep] + strings.Repeat("*", len(local)-keep) + domain
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to i.
func Int64Ptr(i int64) *int64 {
	return &i
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// SafeString returns the value of s or "".
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeInt64 returns the value of i or 0.
func SafeInt64(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

// Contains reports whether slice contains item.
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Max returns the larger of a and b.
func Max[T int | int64 | float64](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min[T int | int64 | float64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Pagination carries page parameters through handlers and repositories.
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset returns the row offset.
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit returns the page size.
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize clamps the page parameters to sane bounds.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
