//go:build integration

package registry_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	"penmatch/internal/registry"
	"penmatch/pkg/platform/sentinel"
	"penmatch/pkg/testutil/containers"
)

type PostgresProviderSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	pool       *pgxpool.Pool
	provider   *registry.PostgresProvider
	normalizer *normalize.Normalizer
}

func TestPostgresProviderSuite(t *testing.T) {
	suite.Run(t, new(PostgresProviderSuite))
}

func (s *PostgresProviderSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	pool, err := pgxpool.New(context.Background(), s.postgres.ConnStr)
	s.Require().NoError(err)
	s.pool = pool
	s.normalizer = normalize.New(nil)
	s.provider = registry.NewPostgresProvider(pool, s.normalizer)
	s.Require().NoError(s.provider.EnsureSchema(context.Background()))
}

func (s *PostgresProviderSuite) TearDownSuite() {
	s.pool.Close()
}

func (s *PostgresProviderSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "pen_registry"))
	s.Require().NoError(s.provider.Insert(ctx,
		models.CandidateRecord{PEN: "123456782", Surname: "SMITH", GivenName: "JOHN", DateOfBirth: "20050101", Gender: "M"},
		models.CandidateRecord{PEN: "987654324", Surname: "SMYTH", GivenName: "JANE", DateOfBirth: "20060202", Gender: "F"},
		models.CandidateRecord{PEN: "111111118", Surname: "JONES", GivenName: "MARY", LocalID: "A-100", Mincode: "03939001"},
		models.CandidateRecord{PEN: "100000009", Surname: "BROWN", GivenName: "ALEX", TruePEN: "200000008"},
	))
}

func (s *PostgresProviderSuite) lookup(r models.DemographicRecord, limit int) []string {
	records, err := s.provider.Lookup(context.Background(), s.normalizer.Normalize(r), limit)
	s.Require().NoError(err)
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.PEN)
	}
	return out
}

func (s *PostgresProviderSuite) TestLookupBlocks() {
	s.Run("phonetic surname", func() {
		s.Equal([]string{"123456782", "987654324"}, s.lookup(models.DemographicRecord{Surname: "Smith"}, 10))
	})
	s.Run("swapped names", func() {
		s.Equal([]string{"123456782", "987654324"}, s.lookup(models.DemographicRecord{Surname: "John", GivenName: "Smith"}, 10))
	})
	s.Run("local id with mincode", func() {
		s.Equal([]string{"111111118"}, s.lookup(models.DemographicRecord{Surname: "Zed", LocalID: "A100", Mincode: "03939001"}, 10))
	})
	s.Run("true pen", func() {
		s.Equal([]string{"100000009"}, s.lookup(models.DemographicRecord{Surname: "Zed", SubmittedPEN: "200000008"}, 10))
	})
	s.Run("limit", func() {
		s.Equal([]string{"123456782"}, s.lookup(models.DemographicRecord{Surname: "Smith"}, 1))
	})
}

func (s *PostgresProviderSuite) TestLookupKeepsExactBlocksInCrowdedPhoneticBlock() {
	ctx := context.Background()
	crowd := make([]models.CandidateRecord, 0, 60)
	for i := range 60 {
		crowd = append(crowd, models.CandidateRecord{
			PEN: fmt.Sprintf("F%08d", i), Surname: "SMITH", GivenName: "ALEX", DateOfBirth: "19900615", Gender: "F",
		})
	}
	s.Require().NoError(s.provider.Insert(ctx, crowd...))
	s.Require().NoError(s.provider.Insert(ctx,
		models.CandidateRecord{PEN: "200000008", Surname: "SMITH", GivenName: "JON", DateOfBirth: "20050303", Gender: "M"},
	))

	s.Run("valid submitted pen comes first", func() {
		got := s.lookup(models.DemographicRecord{Surname: "Smith", GivenName: "John", SubmittedPEN: "123456782"}, 50)
		s.Len(got, 50)
		s.Equal("123456782", got[0])
	})
	s.Run("phonetic block ranked by birth date", func() {
		got := s.lookup(models.DemographicRecord{Surname: "Smith", GivenName: "John", DateOfBirth: "20050101"}, 50)
		s.Len(got, 50)
		s.Equal([]string{"123456782", "200000008"}, got[:2])
	})
	s.Run("exact block outlives a small cap", func() {
		got := s.lookup(models.DemographicRecord{
			Surname: "Jones", SubmittedPEN: "123456782", LocalID: "A100", Mincode: "03939001",
		}, 1)
		s.Equal([]string{"123456782", "111111118"}, got)
	})
}

func (s *PostgresProviderSuite) TestInsertUpserts() {
	ctx := context.Background()
	s.Require().NoError(s.provider.Insert(ctx,
		models.CandidateRecord{PEN: "123456782", Surname: "SMITH", GivenName: "JONATHAN"},
	))
	got, err := s.provider.FindByPEN(ctx, "123456782")
	s.Require().NoError(err)
	s.Equal("JONATHAN", got.GivenName)
}

func (s *PostgresProviderSuite) TestFindByPENNotFound() {
	_, err := s.provider.FindByPEN(context.Background(), "000000000")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresProviderSuite) TestCancelledLookupIsUnavailable() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.provider.Lookup(ctx, s.normalizer.Normalize(models.DemographicRecord{Surname: "Smith"}), 10)
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.ErrorIs(err, context.Canceled)
}
