// teams/store/team_store.go
package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/mcbzh/teams-service/shared/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TeamStore is the persistence gateway for team records. One document per
// team, keyed by team id, in the live collection.
//
// Bulk save never touches the live collection in place: all records go to a
// scratch collection first, the write is verified, the previous live
// collection is kept as a backup, and only then is the scratch promoted over
// the live name with an atomic rename. Any failure along the way leaves the
// previous durable copy intact.
type TeamStore struct {
	db        *mongo.Database
	rawClient *mongo.Client
	live      string
}

// NewTeamStore creates a new TeamStore instance. The raw client is needed for
// the admin renameCollection command that promotes a finished scratch write.
func NewTeamStore(db *mongo.Database, rawClient *mongo.Client, collection string) *TeamStore {
	return &TeamStore{
		db:        db,
		rawClient: rawClient,
		live:      collection,
	}
}

func (ts *TeamStore) scratchName() string { return ts.live + "_scratch" }
func (ts *TeamStore) backupName() string  { return ts.live + "_backup" }

// SaveAll writes the full team population to durable storage.
//
// Sequence: write every record to a fresh scratch collection, verify the
// stored count matches, rename the current live collection to the backup name
// (keeping the prior durable state recoverable), then rename the scratch over
// the live name. Both renames are atomic server-side; a failure before the
// final rename leaves the previous copy readable (possibly under the backup
// name, which LoadAll falls back to).
func (ts *TeamStore) SaveAll(ctx context.Context, records []models.TeamRecord) error {
	scratch := ts.db.Collection(ts.scratchName())

	if err := scratch.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop stale scratch collection: %w", err)
	}

	if len(records) > 0 {
		docs := make([]interface{}, 0, len(records))
		for _, rec := range records {
			docs = append(docs, rec)
		}
		if _, err := scratch.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to write team records to scratch collection: %w", err)
		}

		count, err := scratch.CountDocuments(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("failed to verify scratch collection: %w", err)
		}
		if count != int64(len(records)) {
			return fmt.Errorf("scratch collection verification failed: wrote %d records, found %d", len(records), count)
		}
	} else {
		// Rename requires the source namespace to exist even for an empty
		// population.
		if err := ts.db.CreateCollection(ctx, ts.scratchName()); err != nil {
			return fmt.Errorf("failed to create empty scratch collection: %w", err)
		}
	}

	liveExists, err := ts.collectionExists(ctx, ts.live)
	if err != nil {
		return err
	}
	if liveExists {
		if err := ts.renameCollection(ctx, ts.live, ts.backupName()); err != nil {
			return fmt.Errorf("failed to back up live team collection: %w", err)
		}
	}

	if err := ts.renameCollection(ctx, ts.scratchName(), ts.live); err != nil {
		return fmt.Errorf("failed to promote scratch team collection: %w", err)
	}

	log.Debug().Int("teams", len(records)).Msg("team records saved")
	return nil
}

// LoadAll reads every team record from durable storage and rehydrates it.
// Failures are isolated per record: a document that does not decode or does
// not rehydrate is logged and skipped, never aborting the rest of the load.
// When the live collection holds nothing but a backup does, the backup is
// loaded instead and the recovery is logged.
func (ts *TeamStore) LoadAll(ctx context.Context) ([]*models.Team, error) {
	teams, err := ts.loadCollection(ctx, ts.live)
	if err != nil {
		return nil, err
	}
	if len(teams) > 0 {
		return teams, nil
	}

	backupExists, err := ts.collectionExists(ctx, ts.backupName())
	if err != nil {
		return nil, err
	}
	if !backupExists {
		return teams, nil
	}
	recovered, err := ts.loadCollection(ctx, ts.backupName())
	if err != nil {
		return nil, err
	}
	if len(recovered) > 0 {
		log.Warn().Int("teams", len(recovered)).Msg("live team collection was empty, recovered from backup")
	}
	return recovered, nil
}

func (ts *TeamStore) loadCollection(ctx context.Context, name string) ([]*models.Team, error) {
	cursor, err := ts.db.Collection(name).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query team collection %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var teams []*models.Team
	for cursor.Next(ctx) {
		team, err := teamFromDocument(cursor.Current)
		if err != nil {
			log.Error().Err(err).Str("collection", name).Msg("skipping unreadable team record")
			continue
		}
		teams = append(teams, team)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while loading team collection %s: %w", name, err)
	}
	return teams, nil
}

// teamFromDocument decodes a single stored document and rehydrates it. An
// error here condemns only this document, never the surrounding load.
func teamFromDocument(raw bson.Raw) (*models.Team, error) {
	var rec models.TeamRecord
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode team record: %w", err)
	}
	return models.RehydrateTeam(rec)
}

// collectionExists reports whether the named collection exists in the
// database.
func (ts *TeamStore) collectionExists(ctx context.Context, name string) (bool, error) {
	names, err := ts.db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	return slices.Contains(names, name), nil
}

// renameCollection atomically renames from to to within the store's database,
// dropping any previous collection under the target name.
func (ts *TeamStore) renameCollection(ctx context.Context, from, to string) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: ts.db.Name() + "." + from},
		{Key: "to", Value: ts.db.Name() + "." + to},
		{Key: "dropTarget", Value: true},
	}
	if err := ts.rawClient.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("renameCollection %s -> %s failed: %w", from, to, err)
	}
	return nil
}
