// Package scraper guesses a customer's company from their name. There is no
// real scraping behind it: names are matched against a fixed reference list.
package scraper

import (
	"context"
	_ "embed"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed companies.yaml
var companiesYAML []byte

// DefaultCompanies returns the built-in reference list.
func DefaultCompanies() []string {
	var companies []string
	if err := yaml.Unmarshal(companiesYAML, &companies); err != nil {
		panic("scraper: embedded company list is invalid: " + err.Error())
	}
	return companies
}

// CompanyLookup resolves customer names to company names.
type CompanyLookup struct {
	companies []string
	delay     time.Duration
	pick      func(n int) int
	logger    *logrus.Entry
}

type Option func(*CompanyLookup)

// WithDelay simulates the latency of a remote lookup.
func WithDelay(d time.Duration) Option {
	return func(l *CompanyLookup) { l.delay = d }
}

// WithPicker replaces the random fallback choice. pick receives the list
// length and returns an index.
func WithPicker(pick func(n int) int) Option {
	return func(l *CompanyLookup) { l.pick = pick }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(l *CompanyLookup) { l.logger = logger }
}

func NewCompanyLookup(companies []string, opts ...Option) (*CompanyLookup, error) {
	if len(companies) == 0 {
		return nil, errors.New("scraper: company list is empty")
	}
	l := &CompanyLookup{
		companies: append([]string(nil), companies...),
		pick:      rand.IntN,
		logger:    logrus.WithField("component", "scraper"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Company returns the first reference company containing the first word of
// name, or a random one when nothing matches.
func (l *CompanyLookup) Company(ctx context.Context, name string) (string, error) {
	if l.delay > 0 {
		timer := time.NewTimer(l.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	l.logger.WithField("name", name).Debug("Looking up company")

	if token := firstToken(name); token != "" {
		for _, company := range l.companies {
			if strings.Contains(strings.ToLower(company), token) {
				return company, nil
			}
		}
	}
	return l.companies[l.pick(len(l.companies))], nil
}

func firstToken(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
