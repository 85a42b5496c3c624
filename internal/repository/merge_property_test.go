package repository

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
)

func genNoteID() gopter.Gen {
	return gen.RegexMatch(`[a-z0-9]{8}`)
}

func newMergeRepo() *NoteRepository {
	repo := NewNoteRepository(memory.NewStore(), bus.New(nil), nil, "test", nil)
	_ = repo.Load(context.Background())
	return repo
}

// Merge counts always partition the incoming set: every incoming note
// is counted exactly once as imported, updated or skipped.
func TestProperty_MergeCountsPartitionIncoming(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("imported+updated+skipped == len(incoming)", prop.ForAll(
		func(ids []string, blanks int) bool {
			repo := newMergeRepo()

			var incoming []*domain.Note
			for _, id := range ids {
				incoming = append(incoming, &domain.Note{ID: id, Domain: "example.com"})
			}
			for i := 0; i < blanks; i++ {
				incoming = append(incoming, &domain.Note{Domain: "example.com"})
			}

			result, err := repo.MergeBucket(context.Background(), "example.com", incoming)
			if err != nil {
				return false
			}
			return result.Imported+result.Updated+result.Skipped == len(incoming)
		},
		gen.SliceOf(genNoteID()),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

// Merging the same set twice never imports twice: the second run sees
// every id as existing.
func TestProperty_MergeIsStableOnReplay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("second merge imports nothing", prop.ForAll(
		func(ids []string) bool {
			repo := newMergeRepo()
			ctx := context.Background()

			var incoming []*domain.Note
			for _, id := range ids {
				incoming = append(incoming, &domain.Note{ID: id, Domain: "example.com"})
			}

			if _, err := repo.MergeBucket(ctx, "example.com", incoming); err != nil {
				return false
			}
			second, err := repo.MergeBucket(ctx, "example.com", incoming)
			if err != nil {
				return false
			}
			return second.Imported == 0
		},
		gen.SliceOf(genNoteID()),
	))

	properties.TestingRun(t)
}

// An imported note always wins the next last-write-wins comparison
// against whatever was stored before.
func TestProperty_ImportWinsLWW(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("merged note is newer than the pre-existing one", prop.ForAll(
		func(id, beforeTitle, afterTitle string) bool {
			repo := newMergeRepo()
			ctx := context.Background()

			existing, err := repo.Save(ctx, &domain.Note{ID: id, Domain: "example.com", Title: beforeTitle})
			if err != nil {
				return false
			}

			_, err = repo.MergeBucket(ctx, "example.com", []*domain.Note{
				{ID: id, Domain: "example.com", Title: afterTitle},
			})
			if err != nil {
				return false
			}

			merged, err := repo.GetByID(ctx, id)
			if err != nil {
				return false
			}
			return merged.Title == afterTitle && merged.UpdatedAt.After(existing.UpdatedAt)
		},
		genNoteID(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Exporting a repository and merging the envelope into a fresh one
// leaves note content untouched: id, domain, title, content and tags
// survive the round trip, delete flags and encrypted payloads do not.
func TestProperty_ExportImportRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("content survives export then import", prop.ForAll(
		func(id, title, content string, tags []string, cipher string) bool {
			repo := newMergeRepo()
			ctx := context.Background()

			saved, err := repo.Save(ctx, &domain.Note{
				ID:               id,
				Domain:           "example.com",
				Title:            title,
				Content:          content,
				Tags:             tags,
				TitleEncrypted:   cipher,
				ContentEncrypted: cipher,
			})
			if err != nil {
				return false
			}

			env, err := repo.Export(ctx, "round-trip")
			if err != nil {
				return false
			}

			other := newMergeRepo()
			for d, notes := range env.Domains {
				for _, n := range notes {
					if n.TitleEncrypted != "" || n.ContentEncrypted != "" {
						return false
					}
				}
				if _, err := other.MergeBucket(ctx, d, notes); err != nil {
					return false
				}
			}

			got, err := other.GetByID(ctx, id)
			if err != nil {
				return false
			}
			return got.ID == saved.ID &&
				got.Domain == saved.Domain &&
				got.Title == saved.Title &&
				got.Content == saved.Content &&
				len(got.Tags) == len(saved.Tags) &&
				!got.IsDeleted
		},
		genNoteID(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.SliceOf(gen.RegexMatch(`[a-z]{3,6}`)),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Merged notes are never soft-deleted regardless of the incoming
// flags.
func TestProperty_MergeAlwaysResurrects(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("no merged note carries delete flags", prop.ForAll(
		func(id string, deleted bool) bool {
			repo := newMergeRepo()
			ctx := context.Background()

			_, err := repo.MergeBucket(ctx, "example.com", []*domain.Note{
				{ID: id, Domain: "example.com", IsDeleted: deleted},
			})
			if err != nil {
				return false
			}

			n, err := repo.GetByID(ctx, id)
			if err != nil {
				return false
			}
			return !n.IsDeleted && n.DeletedAt == nil
		},
		genNoteID(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
