package ispyb

import (
	"context"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	"github.com/beamtime/hyperion/pkg/params"
	"github.com/beamtime/hyperion/pkg/plans"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func depositionConfig() *params.ExperimentConfig {
	sampleID := int64(12345)

	return &params.ExperimentConfig{
		ParamsVersion: "3.0.0",
		HyperionParams: params.HyperionParams{
			Beamline:       "BL03S",
			ExperimentType: params.FlyscanXrayCentre,
			DetectorParams: params.DetectorParams{
				CurrentEnergyEV: 100,
				Directory:       "/tmp/dir",
				Prefix:          "file_name",
			},
			IspybParams: params.IspybParams{
				VisitPath:               "/visit/cm00000-1",
				SampleID:                &sampleID,
				Transmission:            1.0,
				Wavelength:              0.97,
				XtalSnapshotsOmegaStart: []string{"a.png", "b.png"},
				Comment:                 "Descriptive comment.",
			},
		},
		ExperimentParams: &params.GridScanParams{
			XSteps: 4,
			YSteps: 2,
			ZSteps: 1,
		},
	}
}

func TestInsertGroupStmt(t *testing.T) {
	t.Parallel()

	sql, args, err := insertGroupStmt(depositionConfig(), time.Unix(0, 0).UTC()).ToSql()
	testza.AssertNil(t, err)

	testza.AssertEqual(t,
		"INSERT INTO data_collection_group (visit,experiment_type,sample_id,sample_barcode,start_time) "+
			"VALUES ($1,$2,$3,$4,$5) RETURNING id",
		sql,
	)

	testza.AssertEqual(t, "/visit/cm00000-1", args[0])
	testza.AssertEqual(t, "flyscan_xray_centre", args[1])
	testza.AssertEqual(t, int64(12345), *(args[2].(*int64)))
}

func TestInsertCollectionStmt_CountsImages(t *testing.T) {
	t.Parallel()

	sql, args, err := insertCollectionStmt(depositionConfig(), 7, time.Unix(0, 0).UTC()).ToSql()
	testza.AssertNil(t, err)

	testza.AssertContains(t, sql, "INSERT INTO data_collection ")
	testza.AssertContains(t, sql, "RETURNING id")

	// group id then beamline then image count of the 4x2 + 4x1 grids
	testza.AssertEqual(t, int64(7), args[0])
	testza.AssertEqual(t, "BL03S", args[1])
	testza.AssertEqual(t, 12, args[2])
}

func TestCloseCollectionStmt(t *testing.T) {
	t.Parallel()

	sql, args, err := closeCollectionStmt(7, plans.RunStatusFailure, "aborted", time.Unix(0, 0).UTC()).ToSql()
	testza.AssertNil(t, err)

	testza.AssertEqual(t,
		"UPDATE data_collection SET run_status = $1, end_time = $2, "+
			"comments = concat(comments, ' ', $3::text) WHERE id = $4",
		sql,
	)

	testza.AssertEqual(t, plans.RunStatusFailure, args[0])
	testza.AssertEqual(t, "aborted", args[2])
	testza.AssertEqual(t, int64(7), args[3])
}

func TestCloseCollectionStmt_NoReasonLeavesComments(t *testing.T) {
	t.Parallel()

	sql, _, err := closeCollectionStmt(7, plans.RunStatusSuccess, "", time.Unix(0, 0).UTC()).ToSql()
	testza.AssertNil(t, err)
	testza.AssertNotContains(t, sql, "comments")
}

type fakeRow struct {
	id int64
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.id
	return nil
}

type fakeQuerier struct {
	queries []string
	execs   []string
	nextID  int64
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	q.nextID++
	return fakeRow{id: q.nextID}
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	return pgconn.CommandTag{}, nil
}

func TestStore_DepositionLifecycle(t *testing.T) {
	t.Parallel()

	db := &fakeQuerier{}
	store := NewStore(db)

	id, err := store.BeginDeposition(context.Background(), depositionConfig())
	testza.AssertNil(t, err)
	testza.AssertEqual(t, int64(2), id)
	testza.AssertEqual(t, 2, len(db.queries))
	testza.AssertContains(t, db.queries[0], "data_collection_group")
	testza.AssertContains(t, db.queries[1], "INSERT INTO data_collection ")

	testza.AssertNil(t, store.EndDeposition(context.Background(), id, plans.RunStatusSuccess, ""))
	testza.AssertEqual(t, 1, len(db.execs))
	testza.AssertContains(t, db.execs[0], "UPDATE data_collection")
}
