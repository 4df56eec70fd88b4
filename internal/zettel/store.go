package zettel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/alfredlabs/zettel/internal/log"
)

// querier abstracts pgxpool.Pool and pgx.Tx so store methods run the
// same SQL inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	defaultListLimit = 50
	maxListLimit     = 500

	cardCols = `id, title, content, summary, tags, topic, source_url, document_id,
		status, importance, confidence, embedding, created_at, updated_at`

	linkCols = `id, from_card_id, to_card_id, link_type, context, bidirectional, created_at`

	reviewCols = `id, card_id, stage, iteration, due_at, completed_at, score, created_at`
)

// Store persists cards, links and reviews in PostgreSQL. All methods
// are safe for concurrent use; multi-row changes (card plus first
// review, mirrored link rows, review completion plus successor) run in
// a single transaction.
type Store struct {
	pool     *pgxpool.Pool
	schedule *Schedule
	logger   log.Logger
}

// NewStore creates a Store. A nil schedule falls back to the default
// 0/7/30-day intervals.
func NewStore(pool *pgxpool.Pool, schedule *Schedule, logger log.Logger) *Store {
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	return &Store{pool: pool, schedule: schedule, logger: logger}
}

// Schedule returns the review schedule the store operates with.
func (s *Store) Schedule() *Schedule { return s.schedule }

// CreateCard inserts a new card and schedules its first review in one
// transaction. Returns the created card and the open review.
func (s *Store) CreateCard(ctx context.Context, p CreateCardParams) (*Card, *Review, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, nil, fmt.Errorf("%w: title must not be blank", ErrInvalid)
	}
	if p.Importance < 0 || p.Importance > 10 {
		return nil, nil, fmt.Errorf("%w: importance must be between 0 and 10", ErrInvalid)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, nil, fmt.Errorf("%w: confidence must be between 0.0 and 1.0", ErrInvalid)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const insertCard = `
		INSERT INTO cards (title, content, summary, tags, topic, source_url, document_id, importance, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + cardCols

	card, err := scanCard(tx.QueryRow(ctx, insertCard,
		p.Title, nullIfEmpty(p.Content), nullIfEmpty(p.Summary), p.Tags,
		nullIfEmpty(p.Topic), nullIfEmpty(p.SourceURL), nullIfEmpty(p.DocumentID),
		p.Importance, p.Confidence))
	if err != nil {
		return nil, nil, fmt.Errorf("inserting card: %w", err)
	}

	review, err := s.insertReview(ctx, tx, card.ID, 1, 1, s.schedule.DueAt(card.CreatedAt, 1))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("card created", "card_id", card.ID, "review_due", review.DueAt)
	return card, review, nil
}

// GetCard fetches one card by ID.
func (s *Store) GetCard(ctx context.Context, id int64) (*Card, error) {
	const query = `SELECT ` + cardCols + ` FROM cards WHERE id = $1`

	card, err := scanCard(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching card %d: %w", id, err)
	}
	return card, nil
}

// ListCards returns cards matching the filters, most recently updated
// first. The limit defaults to 50 and caps at 500.
func (s *Store) ListCards(ctx context.Context, p ListCardsParams) ([]*Card, error) {
	if p.Limit <= 0 {
		p.Limit = defaultListLimit
	}
	if p.Limit > maxListLimit {
		p.Limit = maxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, p.Status)
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		ph := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR summary ILIKE %s OR content ILIKE %s)", ph, ph, ph))
	}
	if p.Topic != "" {
		where = append(where, "topic = "+arg(p.Topic))
	}
	if p.Tag != "" {
		where = append(where, arg(p.Tag)+" = ANY(tags)")
	}
	if p.Status != "" {
		where = append(where, "status = "+arg(string(p.Status)))
	}

	query := `SELECT ` + cardCols + ` FROM cards`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT %s OFFSET %s", arg(p.Limit), arg(p.Offset))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// UpdateCard applies a partial update to a card. Changing the title,
// content or summary clears the stored embedding.
func (s *Store) UpdateCard(ctx context.Context, id int64, p UpdateCardParams) (*Card, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const lockCard = `SELECT ` + cardCols + ` FROM cards WHERE id = $1 FOR UPDATE`

	card, err := scanCard(tx.QueryRow(ctx, lockCard, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("locking card %d: %w", id, err)
	}

	textChanged := false
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be blank", ErrInvalid)
		}
		if title != card.Title {
			card.Title = title
			textChanged = true
		}
	}
	if p.Content != nil && *p.Content != card.Content {
		card.Content = *p.Content
		textChanged = true
	}
	if p.Summary != nil && *p.Summary != card.Summary {
		card.Summary = *p.Summary
		textChanged = true
	}
	if p.Tags != nil {
		card.Tags = *p.Tags
		if card.Tags == nil {
			card.Tags = []string{}
		}
	}
	if p.Topic != nil {
		card.Topic = *p.Topic
	}
	if p.SourceURL != nil {
		card.SourceURL = *p.SourceURL
	}
	if p.DocumentID != nil {
		card.DocumentID = *p.DocumentID
	}
	if p.Importance != nil {
		if *p.Importance < 0 || *p.Importance > 10 {
			return nil, fmt.Errorf("%w: importance must be between 0 and 10", ErrInvalid)
		}
		card.Importance = *p.Importance
	}
	if p.Confidence != nil {
		if *p.Confidence < 0 || *p.Confidence > 1 {
			return nil, fmt.Errorf("%w: confidence must be between 0.0 and 1.0", ErrInvalid)
		}
		card.Confidence = *p.Confidence
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *p.Status)
		}
		card.Status = *p.Status
	}
	if textChanged {
		card.Embedding = nil
	}

	const update = `
		UPDATE cards
		SET title = $2, content = $3, summary = $4, tags = $5, topic = $6,
			source_url = $7, document_id = $8, status = $9, importance = $10,
			confidence = $11, embedding = $12, updated_at = now()
		WHERE id = $1
		RETURNING ` + cardCols

	updated, err := scanCard(tx.QueryRow(ctx, update, id,
		card.Title, nullIfEmpty(card.Content), nullIfEmpty(card.Summary), card.Tags,
		nullIfEmpty(card.Topic), nullIfEmpty(card.SourceURL), nullIfEmpty(card.DocumentID),
		string(card.Status), card.Importance, card.Confidence, vectorOrNil(card.Embedding)))
	if err != nil {
		return nil, fmt.Errorf("updating card %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("card updated", "card_id", id, "embedding_cleared", textChanged)
	return updated, nil
}

// ArchiveCard marks a card archived. Archived cards keep their links
// and reviews but are excluded from link suggestion.
func (s *Store) ArchiveCard(ctx context.Context, id int64) (*Card, error) {
	const query = `
		UPDATE cards SET status = 'archived', updated_at = now()
		WHERE id = $1
		RETURNING ` + cardCols

	card, err := scanCard(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("archiving card %d: %w", id, err)
	}
	return card, nil
}

// SetEmbedding stores a freshly computed embedding for a card.
// Computing an embedding is an update event, so updated_at is
// refreshed; the new timestamp is returned for callers holding a
// loaded card.
func (s *Store) SetEmbedding(ctx context.Context, id int64, embedding []float32) (time.Time, error) {
	const query = `UPDATE cards SET embedding = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`

	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, query, id, pgvector.NewVector(embedding)).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("storing embedding for card %d: %w", id, err)
	}
	return updatedAt, nil
}

// ActiveCards returns every active card, oldest first. Used by the
// link suggestion engine to build its candidate set.
func (s *Store) ActiveCards(ctx context.Context) ([]*Card, error) {
	const query = `SELECT ` + cardCols + ` FROM cards WHERE status = 'active' ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// CreateLink inserts a directed edge between two cards, plus the
// mirrored edge when bidirectional, in one transaction. An existing
// (from, to, type) edge fails with ErrDuplicateLink.
func (s *Store) CreateLink(ctx context.Context, p CreateLinkParams) ([]*Link, error) {
	if p.FromCardID == p.ToCardID {
		return nil, fmt.Errorf("%w: a card cannot link to itself", ErrInvalid)
	}
	if p.Type == "" {
		p.Type = LinkTypeReference
	}

	for _, id := range []int64{p.FromCardID, p.ToCardID} {
		if err := s.cardExists(ctx, id); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const insertLink = `
		INSERT INTO card_links (from_card_id, to_card_id, link_type, context, bidirectional)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + linkCols

	links := make([]*Link, 0, 2)
	pairs := [][2]int64{{p.FromCardID, p.ToCardID}}
	if p.Bidirectional {
		pairs = append(pairs, [2]int64{p.ToCardID, p.FromCardID})
	}
	for _, pair := range pairs {
		link, err := scanLink(tx.QueryRow(ctx, insertLink,
			pair[0], pair[1], p.Type, nullIfEmpty(p.Context), p.Bidirectional))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("link %d->%d (%s): %w", pair[0], pair[1], p.Type, ErrDuplicateLink)
			}
			return nil, fmt.Errorf("inserting link %d->%d: %w", pair[0], pair[1], err)
		}
		links = append(links, link)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("link created",
		"from", p.FromCardID, "to", p.ToCardID, "type", p.Type, "bidirectional", p.Bidirectional)
	return links, nil
}

// ListLinks returns every link touching a card, in either direction,
// ordered by ID.
func (s *Store) ListLinks(ctx context.Context, cardID int64) ([]*Link, error) {
	if err := s.cardExists(ctx, cardID); err != nil {
		return nil, err
	}

	const query = `
		SELECT ` + linkCols + ` FROM card_links
		WHERE from_card_id = $1 OR to_card_id = $1
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, fmt.Errorf("listing links for card %d: %w", cardID, err)
	}
	defer rows.Close()

	links := []*Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}

// LinkedCardIDs returns the IDs of all cards linked to cardID in either
// direction. The suggestion engine uses this to skip already-linked
// candidates.
func (s *Store) LinkedCardIDs(ctx context.Context, cardID int64) (map[int64]bool, error) {
	const query = `
		SELECT DISTINCT CASE WHEN from_card_id = $1 THEN to_card_id ELSE from_card_id END
		FROM card_links
		WHERE from_card_id = $1 OR to_card_id = $1`

	rows, err := s.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, fmt.Errorf("listing linked card IDs for card %d: %w", cardID, err)
	}
	defer rows.Close()

	linked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning linked card ID: %w", err)
		}
		linked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating linked card IDs: %w", err)
	}
	return linked, nil
}

// DueReviews returns open reviews whose due time has passed, most
// overdue first.
func (s *Store) DueReviews(ctx context.Context, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	const query = `
		SELECT ` + reviewCols + ` FROM reviews
		WHERE completed_at IS NULL AND due_at <= now()
		ORDER BY due_at ASC, id ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing due reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}
	return reviews, nil
}

// CompleteReview marks a review done and schedules the card's next
// review in the same transaction, so the one-open-review-per-card
// invariant holds at every commit point. Returns the completed review
// and its successor.
func (s *Store) CompleteReview(ctx context.Context, id int64, score *float64) (*Review, *Review, error) {
	if score != nil && (*score < 0 || *score > 1) {
		return nil, nil, fmt.Errorf("%w: score must be between 0.0 and 1.0", ErrInvalid)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const complete = `
		UPDATE reviews SET completed_at = now(), score = $2
		WHERE id = $1 AND completed_at IS NULL
		RETURNING ` + reviewCols

	done, err := scanReview(tx.QueryRow(ctx, complete, id, score))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing review from an already-completed one.
			var exists bool
			if lookupErr := s.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, id).Scan(&exists); lookupErr != nil {
				return nil, nil, fmt.Errorf("checking review %d: %w", id, lookupErr)
			}
			if !exists {
				return nil, nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
			}
			return nil, nil, fmt.Errorf("review %d: %w", id, ErrReviewCompleted)
		}
		return nil, nil, fmt.Errorf("completing review %d: %w", id, err)
	}

	nextStage, nextIteration := s.schedule.Next(done.Stage, done.Iteration)
	next, err := s.insertReview(ctx, tx, done.CardID, nextStage, nextIteration,
		s.schedule.DueAt(*done.CompletedAt, nextStage))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("review completed",
		"review_id", done.ID, "card_id", done.CardID,
		"next_stage", next.Stage, "next_iteration", next.Iteration, "next_due", next.DueAt)
	return done, next, nil
}

// Stats counts open and currently due reviews.
func (s *Store) Stats(ctx context.Context) (*ReviewStats, error) {
	const query = `
		SELECT count(*),
			count(*) FILTER (WHERE due_at <= now())
		FROM reviews
		WHERE completed_at IS NULL`

	var stats ReviewStats
	if err := s.pool.QueryRow(ctx, query).Scan(&stats.Open, &stats.Due); err != nil {
		return nil, fmt.Errorf("counting reviews: %w", err)
	}
	return &stats, nil
}

func (s *Store) insertReview(ctx context.Context, q querier, cardID int64, stage, iteration int, dueAt time.Time) (*Review, error) {
	const query = `
		INSERT INTO reviews (card_id, stage, iteration, due_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + reviewCols

	review, err := scanReview(q.QueryRow(ctx, query, cardID, stage, iteration, dueAt))
	if err != nil {
		return nil, fmt.Errorf("inserting review for card %d: %w", cardID, err)
	}
	return review, nil
}

func (s *Store) cardExists(ctx context.Context, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking card %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Warn("transaction rollback failed", "error", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func vectorOrNil(embedding []float32) *pgvector.Vector {
	if embedding == nil {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}

func scanCard(row pgx.Row) (*Card, error) {
	var (
		card                                   Card
		content, summary, topic, srcURL, docID *string
		embedding                              *pgvector.Vector
	)
	err := row.Scan(&card.ID, &card.Title, &content, &summary, &card.Tags, &topic,
		&srcURL, &docID, &card.Status, &card.Importance, &card.Confidence,
		&embedding, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	card.Content = deref(content)
	card.Summary = deref(summary)
	card.Topic = deref(topic)
	card.SourceURL = deref(srcURL)
	card.DocumentID = deref(docID)
	if embedding != nil {
		card.Embedding = embedding.Slice()
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return &card, nil
}

func collectCards(rows pgx.Rows) ([]*Card, error) {
	cards := []*Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cards: %w", err)
	}
	return cards, nil
}

func scanLink(row pgx.Row) (*Link, error) {
	var (
		link    Link
		context *string
	)
	err := row.Scan(&link.ID, &link.FromCardID, &link.ToCardID, &link.Type,
		&context, &link.Bidirectional, &link.CreatedAt)
	if err != nil {
		return nil, err
	}
	link.Context = deref(context)
	return &link, nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var review Review
	err := row.Scan(&review.ID, &review.CardID, &review.Stage, &review.Iteration,
		&review.DueAt, &review.CompletedAt, &review.Score, &review.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
