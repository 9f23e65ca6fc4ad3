// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package database

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SeedParams sizes the generated demo corpus.
type SeedParams struct {
	Books        int
	Users        int
	Interactions int
	Seed         int64
}

// DefaultSeedParams produces a corpus large enough for all three models
// to train meaningfully.
func DefaultSeedParams() SeedParams {
	return SeedParams{Books: 60, Users: 40, Interactions: 600, Seed: 42}
}

type seedGenre struct {
	name    string
	authors []string
	nouns   []string
	terms   []string
}

// seedGenres gives each genre its own vocabulary so the content model
// learns real cluster structure from the demo data.
var seedGenres = []seedGenre{
	{
		name:    "Science Fiction",
		authors: []string{"Iris Calder", "Maxim Orlov", "June Takahashi"},
		nouns:   []string{"Starship", "Colony", "Signal", "Horizon", "Engine"},
		terms:   []string{"starship", "colony", "orbit", "alien", "terraform", "quantum", "drone", "relay", "asteroid", "cryosleep"},
	},
	{
		name:    "Fantasy",
		authors: []string{"Rowan Ashe", "Delia Thorn", "Caspian Vale"},
		nouns:   []string{"Crown", "Grimoire", "Citadel", "Oath", "Ember"},
		terms:   []string{"dragon", "sorcery", "kingdom", "prophecy", "sword", "ancient", "ritual", "throne", "curse", "wanderer"},
	},
	{
		name:    "Thriller",
		authors: []string{"Marta Keene", "Doyle Brandt", "Sasha Winters"},
		nouns:   []string{"Witness", "Alibi", "Vault", "Hunter", "Cipher"},
		terms:   []string{"detective", "murder", "conspiracy", "ransom", "informant", "forensics", "stakeout", "motive", "fugitive", "betrayal"},
	},
	{
		name:    "Romance",
		authors: []string{"Elena Brook", "Tom Hartley", "Priya Nair"},
		nouns:   []string{"Summer", "Letter", "Harbor", "Promise", "Waltz"},
		terms:   []string{"seaside", "wedding", "reunion", "heartbreak", "vineyard", "letters", "longing", "bakery", "holiday", "serendipity"},
	},
	{
		name:    "History",
		authors: []string{"Georg Lindqvist", "Abe Okafor", "Lucia Ferrante"},
		nouns:   []string{"Empire", "Voyage", "Treaty", "Dynasty", "Frontier"},
		terms:   []string{"empire", "archive", "revolution", "trade", "dynasty", "expedition", "cartography", "siege", "parliament", "plague"},
	},
}

// SeedSampleData populates an empty snapshot with a deterministic demo
// corpus: a genre-clustered catalog and per-user interactions biased
// toward one favorite genre. A non-empty books table makes this a
// no-op.
func (db *DB) SeedSampleData(ctx context.Context, p SeedParams) error {
	var existing int64
	if err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM books").Scan(&existing); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if existing > 0 {
		db.logger.Info().Int64("books", existing).Msg("snapshot already populated, skipping seed")
		return nil
	}

	r := rand.New(rand.NewSource(p.Seed))
	counts := make([]int64, p.Books)
	ratings := make([]float64, p.Books)
	for i := range ratings {
		ratings[i] = math.Round((2.5+r.Float64()*2.5)*10) / 10
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertInteraction, err := tx.PrepareContext(ctx, `
		INSERT INTO user_book_interactions (id, user_id, book_id, interaction_type, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare interaction insert: %w", err)
	}
	defer insertInteraction.Close()

	start := time.Now().UTC().Add(-180 * 24 * time.Hour)
	step := 180 * 24 * time.Hour / time.Duration(p.Interactions)
	for i := 0; i < p.Interactions; i++ {
		userID := int64(1 + r.Intn(p.Users))
		bookIdx := pickSeedBook(r, int(userID), p.Books)
		counts[bookIdx]++

		kind, rating := pickSeedInteraction(r)
		var ratingArg any
		if rating > 0 {
			ratingArg = rating
		}
		createdAt := start.Add(time.Duration(i) * step)
		if _, err := insertInteraction.ExecContext(ctx,
			int64(i+1), userID, int64(bookIdx+1), kind, ratingArg, createdAt); err != nil {
			return fmt.Errorf("insert interaction: %w", err)
		}
	}

	insertBook, err := tx.PrepareContext(ctx, `
		INSERT INTO books (id, title, author, genre, description, avg_rating, total_interactions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare book insert: %w", err)
	}
	defer insertBook.Close()

	for i := 0; i < p.Books; i++ {
		genre := seedGenres[genreOf(i, p.Books)]
		noun := genre.nouns[i%len(genre.nouns)]
		title := fmt.Sprintf("The %s of %s", noun, genre.terms[r.Intn(len(genre.terms))])
		author := genre.authors[i%len(genre.authors)]
		desc := seedDescription(r, genre)
		if _, err := insertBook.ExecContext(ctx,
			int64(i+1), title, author, genre.name, desc, ratings[i], counts[i]); err != nil {
			return fmt.Errorf("insert book: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	db.logger.Info().
		Int("books", p.Books).
		Int("users", p.Users).
		Int("interactions", p.Interactions).
		Msg("demo corpus seeded")
	return nil
}

// genreOf splits the catalog into contiguous per-genre blocks.
func genreOf(bookIdx, totalBooks int) int {
	block := (totalBooks + len(seedGenres) - 1) / len(seedGenres)
	g := bookIdx / block
	if g >= len(seedGenres) {
		g = len(seedGenres) - 1
	}
	return g
}

// pickSeedBook keeps 70% of a user's activity inside one favorite
// genre block, with popularity skew toward the block's first titles.
func pickSeedBook(r *rand.Rand, userID, totalBooks int) int {
	block := (totalBooks + len(seedGenres) - 1) / len(seedGenres)
	favorite := userID % len(seedGenres)

	g := favorite
	if r.Float64() >= 0.7 {
		g = r.Intn(len(seedGenres))
	}
	lo := g * block
	hi := lo + block
	if hi > totalBooks {
		hi = totalBooks
	}
	span := hi - lo
	if span <= 0 {
		return totalBooks - 1
	}
	offset := int(float64(span) * math.Pow(r.Float64(), 2))
	if offset >= span {
		offset = span - 1
	}
	return lo + offset
}

func pickSeedInteraction(r *rand.Rand) (string, float64) {
	roll := r.Float64()
	switch {
	case roll < 0.50:
		return "view", 0
	case roll < 0.70:
		return "like", 0
	case roll < 0.80:
		return "bookmark", 0
	case roll < 0.92:
		return "rate", math.Round((3+r.Float64()*2)*2) / 2
	default:
		return "purchase", 0
	}
}

func seedDescription(r *rand.Rand, genre seedGenre) string {
	words := make([]byte, 0, 96)
	n := 8 + r.Intn(5)
	for i := 0; i < n; i++ {
		if i > 0 {
			words = append(words, ' ')
		}
		words = append(words, genre.terms[r.Intn(len(genre.terms))]...)
	}
	return string(words)
}
