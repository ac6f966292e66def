package qls

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src_quantum.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	Convey("Given the workspace configuration", t, func() {
		Convey("It should read all fields", func() {
			path := writeConfig(t, `{"workspace_id":"ws-123","subscription":"sub-1","poll_interval_seconds":3}`)
			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.WorkspaceID, ShouldEqual, "ws-123")
			So(cfg.Subscription, ShouldEqual, "sub-1")
			So(cfg.PollInterval, ShouldEqual, 3*time.Second)
		})

		Convey("It should default the poll interval to ten seconds", func() {
			path := writeConfig(t, `{"workspace_id":"ws-123"}`)
			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.PollInterval, ShouldEqual, 10*time.Second)
		})

		Convey("It should fail on a missing file", func() {
			_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
			So(err, ShouldNotBeNil)
		})

		Convey("It should demand a workspace id", func() {
			path := writeConfig(t, `{"subscription":"sub-1"}`)
			_, err := LoadConfig(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "workspace_id")
		})
	})
}

func TestConfigDerivedValues(t *testing.T) {
	Convey("Given a loaded configuration", t, func() {
		cfg := &Config{WorkspaceID: "ws-123", Subscription: "sub-1"}

		Convey("Tags should label resources with the workspace", func() {
			tags := cfg.Tags()
			So(tags["workspace_id"], ShouldEqual, "ws-123")
			So(tags["subscription"], ShouldEqual, "sub-1")
		})

		Convey("S3Folder should follow the Braket bucket convention", func() {
			bucket, key := cfg.S3Folder("jobs/run-1")
			So(bucket, ShouldEqual, "amazon-braket-ws-123")
			So(key, ShouldEqual, "jobs/run-1")
		})
	})
}
