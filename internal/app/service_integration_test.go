package service_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/pythians/internal/app"
	"github.com/okian/pythians/internal/adapters/repository"
	"github.com/okian/pythians/internal/domain/catalog"
	"github.com/okian/pythians/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const seed = `
CREATE TABLE countries (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE years (id INTEGER PRIMARY KEY, year INTEGER NOT NULL, type TEXT NOT NULL, host_id INTEGER);
CREATE TABLE events (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE athletes (id INTEGER PRIMARY KEY, name TEXT NOT NULL, country_id INTEGER NOT NULL);
CREATE TABLE medals (id INTEGER PRIMARY KEY, rank INTEGER NOT NULL, event_id INTEGER NOT NULL, year_id INTEGER NOT NULL, athlete_id INTEGER NOT NULL);
CREATE TABLE year_representing (athlete_id INTEGER NOT NULL, year_id INTEGER NOT NULL, country_id INTEGER NOT NULL);

INSERT INTO countries VALUES (1, 'USA'), (2, 'Greece');
INSERT INTO years VALUES (1, 2000, 'Summer', 1), (2, 2004, 'Summer', 2);
INSERT INTO events VALUES (10, 'Sprint');
INSERT INTO athletes VALUES (100, 'Ana', 2);
INSERT INTO medals VALUES (500, 1, 10, 1, 100), (501, 1, 10, 2, 100);
INSERT INTO year_representing VALUES (100, 1, 1), (100, 2, 2);
`

func seededStore(dir string) *repository.Store {
	path := filepath.Join(dir, "olympics.db")
	db, err := sql.Open("sqlite", path)
	So(err, ShouldBeNil)
	_, err = db.Exec(seed)
	So(err, ShouldBeNil)
	So(db.Close(), ShouldBeNil)

	store, err := repository.Open(context.Background(), "sqlite", path,
		repository.WithMaxOpenConns(4),
		repository.WithQueryTimeout(5*time.Second),
	)
	So(err, ShouldBeNil)
	return store
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by a SQLite database", t, func() {
		store := seededStore(t.TempDir())
		svc := service.New(service.WithOpener(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When checking readiness", func() {
			Convey("Then the store ping should succeed", func() {
				So(svc.Ready(ctx), ShouldBeNil)
			})
		})

		Convey("When getting the athlete end-to-end", func() {
			got, err := svc.Get(ctx, catalog.Athletes, "100")

			Convey("Then the medals should carry per-year representation", func() {
				So(err, ShouldBeNil)
				So(toJSON(got), ShouldEqual, `{"id":100,"name":"Ana","origin":"Greece","medals":[`+
					`{"id":500,"rank":1,"event":"Sprint","year":2000,"repr":"USA"},`+
					`{"id":501,"rank":1,"event":"Sprint","year":2004,"repr":"Greece"}]}`)
			})
		})

		Convey("When many requests run in parallel", func() {
			const workers = 16
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if i%2 == 0 {
						_, err := svc.List(ctx, catalog.Years)
						errs <- err
						return
					}
					_, err := svc.Get(ctx, catalog.Events, "10")
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then each should succeed on its own session", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})
		})

		Convey("When the service is stopped", func() {
			svc.Stop()
			_, err := svc.List(ctx, catalog.Years)

			Convey("Then the closed pool should surface as a data source error", func() {
				So(errors.Is(err, types.ErrDataSource), ShouldBeTrue)
			})
		})
	})
}
