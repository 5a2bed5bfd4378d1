// snapshot-verify audits the equals_snapshots table: for every row it
// recomputes sha256 over the stored canonical payload and compares it with
// the recorded content_hash and file name. Any mismatch indicates a corrupt
// or hand-edited row and is reported with a non-zero exit code.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/snapshot-verify [-org ORG] [-deal DEAL]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/coraeos/obari_backend/workflow"
)

func main() {
	orgFlag := flag.String("org", "", "limit the audit to one org")
	dealFlag := flag.String("deal", "", "limit the audit to one deal id")
	flag.Parse()

	ctx := context.Background()
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipOrgScopeInContext(ctx, true)

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	q := db.WithContext(ctx).Model(&models.EqualsSnapshot{})
	if *orgFlag != "" {
		q = q.Where("org_id = ?", *orgFlag)
	}
	if *dealFlag != "" {
		q = q.Where("deal_id = ?", *dealFlag)
	}

	var snaps []models.EqualsSnapshot
	if err := q.Order("id ASC").Find(&snaps).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to load snapshots: %v\n", err)
		os.Exit(1)
	}

	bad := 0
	for _, snap := range snaps {
		got := utils.SHA256Hex(snap.Payload)
		if got != snap.ContentHash {
			bad++
			fmt.Printf("MISMATCH id=%d org=%s deal=%s stored=%s computed=%s\n",
				snap.ID, snap.OrgId, snap.DealId, snap.ContentHash, got)
			continue
		}
		if want := workflow.SnapshotFile(snap.DealId, snap.ContentHash); snap.File != want {
			bad++
			fmt.Printf("BAD FILE id=%d org=%s deal=%s file=%s want=%s\n",
				snap.ID, snap.OrgId, snap.DealId, snap.File, want)
		}
	}

	fmt.Printf("checked %d snapshots, %d mismatches\n", len(snaps), bad)
	if bad > 0 {
		os.Exit(2)
	}
}
