package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// SeedFile is the declarative initial content of a deployment: the
// vocabularies, the verified experts, their templates and any farms.
type SeedFile struct {
	// Vocabularies maps a vocabulary kind to its terms.
	Vocabularies map[string][]string `yaml:"vocabularies" validate:"dive,keys,vocabkind,endkeys,dive,term"`

	Experts []SeedExpert `yaml:"experts" validate:"dive"`

	Templates []SeedTemplate `yaml:"templates" validate:"dive"`

	Farms []SeedFarm `yaml:"farms" validate:"dive"`
}

// SeedExpert is an expert verified by the admin during seeding.
type SeedExpert struct {
	ID          string `yaml:"id" validate:"required,max=128"`
	Credentials string `yaml:"credentials" validate:"max=1000"`
}

// SeedTemplate is a template published on behalf of Author.
type SeedTemplate struct {
	Author        string `yaml:"author" validate:"required"`
	TemplateInput `yaml:",inline"`
}

// SeedFarm is a farm registered on behalf of Owner.
type SeedFarm struct {
	Owner     string `yaml:"owner" validate:"required,max=128"`
	FarmInput `yaml:",inline"`
}

// SeedReport counts what a seed run created. Entries that already existed
// are skipped and not counted.
type SeedReport struct {
	Terms     int
	Experts   int
	Templates int
	Farms     int
}

// SeedLoader parses seed files and applies them through an Advisor so that
// every entry passes the same checks as a live request. Applying the same
// file twice creates nothing the second time.
type SeedLoader struct {
	advisor   *Advisor
	validator *validator.Validate

	// sf collapses concurrent loads of identical seed content into one run.
	sf singleflight.Group
}

// NewSeedLoader creates a loader that applies seed files through advisor.
// NewSeedLoader returns an error if validator registration fails.
func NewSeedLoader(advisor *Advisor) (*SeedLoader, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &SeedLoader{advisor: advisor, validator: v}, nil
}

// LoadFromFile parses, validates and applies the seed file at path.
func (sl *SeedLoader) LoadFromFile(ctx context.Context, path string) (SeedReport, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return SeedReport{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return sl.load(ctx, data)
}

// LoadFromReader parses, validates and applies seed content read from r.
func (sl *SeedLoader) LoadFromReader(ctx context.Context, r io.Reader) (SeedReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return SeedReport{}, fmt.Errorf("failed to read seed data: %w", err)
	}
	return sl.load(ctx, data)
}

func (sl *SeedLoader) load(ctx context.Context, data []byte) (SeedReport, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	v, err, _ := sl.sf.Do(key, func() (any, error) {
		seed, err := sl.parse(data)
		if err != nil {
			return SeedReport{}, err
		}
		return sl.apply(ctx, seed)
	})
	if err != nil {
		return SeedReport{}, err
	}
	return v.(SeedReport), nil
}

// parse decodes seed YAML strictly and validates it.
func (sl *SeedLoader) parse(data []byte) (*SeedFile, error) {
	var seed SeedFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := validateStruct(sl.validator, "seed", &seed, domain.ErrInvalidInput); err != nil {
		return nil, err
	}
	return &seed, nil
}

// apply creates the seed entries as the admin, in dependency order:
// vocabularies, experts, templates, farms.
func (sl *SeedLoader) apply(ctx context.Context, seed *SeedFile) (SeedReport, error) {
	var report SeedReport

	admin, err := sl.advisor.Admin(ctx)
	if err != nil {
		return report, err
	}
	if admin == "" {
		return report, fmt.Errorf("seed requires a bootstrapped admin: %w", domain.ErrNotAuthorized)
	}

	for _, kind := range domain.VocabularyKinds {
		for _, term := range seed.Vocabularies[string(kind)] {
			_, err := sl.advisor.AddVocabularyTerm(ctx, admin, kind, term)
			switch {
			case err == nil:
				report.Terms++
			case errors.Is(err, domain.ErrVocabularyTermExists):
			default:
				return report, fmt.Errorf("seed vocabulary %s term %q: %w", kind, term, err)
			}
		}
	}

	for _, e := range seed.Experts {
		_, err := sl.advisor.VerifyExpert(ctx, admin, e.ID, e.Credentials)
		switch {
		case err == nil:
			report.Experts++
		case errors.Is(err, domain.ErrExpertAlreadyVerified):
		default:
			return report, fmt.Errorf("seed expert %q: %w", e.ID, err)
		}
	}

	existing, err := sl.advisor.Templates(ctx)
	if err != nil {
		return report, err
	}
	published := make(map[[2]string]bool, len(existing))
	for _, t := range existing {
		published[[2]string{t.Author, t.Name}] = true
	}
	for _, t := range seed.Templates {
		key := [2]string{t.Author, t.Name}
		if published[key] {
			continue
		}
		if _, err := sl.advisor.PublishTemplate(ctx, t.Author, t.TemplateInput); err != nil {
			return report, fmt.Errorf("seed template %q by %q: %w", t.Name, t.Author, err)
		}
		published[key] = true
		report.Templates++
	}

	for _, f := range seed.Farms {
		_, err := sl.advisor.RegisterFarm(ctx, f.Owner, f.FarmInput)
		switch {
		case err == nil:
			report.Farms++
		case errors.Is(err, domain.ErrFarmAlreadyRegistered):
		default:
			return report, fmt.Errorf("seed farm %q: %w", f.Owner, err)
		}
	}

	return report, nil
}
