package ispyb

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

var _ plans.DepositionStore = (*Store)(nil)

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store deposits data collections into an ISPyB database.
type Store struct {
	db querier
}

// NewStore creates a deposition store on top of the given connection pool.
func NewStore(db querier) *Store {
	return &Store{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func insertGroupStmt(cfg *params.ExperimentConfig, startTime time.Time) sq.InsertBuilder {
	return psql.Insert("data_collection_group").
		Columns("visit", "experiment_type", "sample_id", "sample_barcode", "start_time").
		Values(
			cfg.HyperionParams.IspybParams.VisitPath,
			string(cfg.HyperionParams.ExperimentType),
			cfg.HyperionParams.IspybParams.SampleID,
			cfg.HyperionParams.IspybParams.SampleBarcode,
			startTime,
		).
		Suffix("RETURNING id")
}

func insertCollectionStmt(cfg *params.ExperimentConfig, groupID int64, startTime time.Time) sq.InsertBuilder {
	ispyb := cfg.HyperionParams.IspybParams
	detector := cfg.HyperionParams.DetectorParams

	numImages := 0
	if counted, ok := cfg.ExperimentParams.(interface{ NumImages() int }); ok {
		numImages = counted.NumImages()
	}

	return psql.Insert("data_collection").
		Columns(
			"data_collection_group_id",
			"beamline",
			"n_images",
			"transmission",
			"flux",
			"wavelength",
			"resolution",
			"beam_size_x",
			"beam_size_y",
			"focal_spot_size_x",
			"focal_spot_size_y",
			"synchrotron_mode",
			"undulator_gap",
			"slitgap_horizontal",
			"slitgap_vertical",
			"detector_distance",
			"detector_energy_ev",
			"file_template",
			"xtal_snapshots",
			"comments",
			"start_time",
		).
		Values(
			groupID,
			cfg.HyperionParams.Beamline,
			numImages,
			ispyb.Transmission,
			ispyb.Flux,
			ispyb.Wavelength,
			ispyb.Resolution,
			ispyb.BeamSizeX,
			ispyb.BeamSizeY,
			ispyb.FocalSpotSizeX,
			ispyb.FocalSpotSizeY,
			ispyb.SynchrotronMode,
			ispyb.UndulatorGap,
			ispyb.SlitGapSizeX,
			ispyb.SlitGapSizeY,
			detector.Directory,
			detector.CurrentEnergyEV,
			detector.Prefix,
			strings.Join(ispyb.XtalSnapshotsOmegaStart, ","),
			ispyb.Comment,
			startTime,
		).
		Suffix("RETURNING id")
}

func closeCollectionStmt(id int64, runStatus string, reason string, endTime time.Time) sq.UpdateBuilder {
	update := psql.Update("data_collection").
		Set("run_status", runStatus).
		Set("end_time", endTime).
		Where(sq.Eq{"id": id})

	if reason != "" {
		update = update.Set("comments", sq.Expr("concat(comments, ' ', ?::text)", reason))
	}

	return update
}

// BeginDeposition records a data collection group and its data collection,
// returning the data collection id used to close the deposition later.
func (s *Store) BeginDeposition(ctx context.Context, cfg *params.ExperimentConfig) (int64, error) {
	now := time.Now().UTC()

	groupSQL, groupArgs, err := insertGroupStmt(cfg, now).ToSql()
	if err != nil {
		return 0, oops.Wrapf(err, "failed to build group insert")
	}

	var groupID int64
	if err := s.db.QueryRow(ctx, groupSQL, groupArgs...).Scan(&groupID); err != nil {
		return 0, oops.Wrapf(err, "failed to insert data collection group")
	}

	collectionSQL, collectionArgs, err := insertCollectionStmt(cfg, groupID, now).ToSql()
	if err != nil {
		return 0, oops.Wrapf(err, "failed to build collection insert")
	}

	var collectionID int64
	if err := s.db.QueryRow(ctx, collectionSQL, collectionArgs...).Scan(&collectionID); err != nil {
		return 0, oops.Wrapf(err, "failed to insert data collection")
	}

	return collectionID, nil
}

// EndDeposition closes a data collection with the final run status. A non-empty
// reason is appended to the collection comment.
func (s *Store) EndDeposition(ctx context.Context, id int64, runStatus string, reason string) error {
	updateSQL, updateArgs, err := closeCollectionStmt(id, runStatus, reason, time.Now().UTC()).ToSql()
	if err != nil {
		return oops.Wrapf(err, "failed to build collection update")
	}

	if _, err := s.db.Exec(ctx, updateSQL, updateArgs...); err != nil {
		return oops.Wrapf(err, "failed to close data collection %d", id)
	}

	return nil
}
