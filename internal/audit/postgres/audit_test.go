package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal/audit"
	auditPostgres "github.com/frahmantamala/hr-approval/internal/audit/postgres"
	"github.com/frahmantamala/hr-approval/internal/testutil"
)

func TestAuditPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Postgres Suite")
}

var _ = Describe("Recorder", func() {
	var (
		ctx      context.Context
		recorder *auditPostgres.Recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		recorder = auditPostgres.NewRecorder(db)
	})

	It("stores before, after and context as JSON", func() {
		Expect(recorder.Record(ctx, audit.Entry{
			ActorID:      2,
			Action:       "workflow.approve",
			ResourceType: "workflow_instance",
			ResourceID:   7,
			Before:       map[string]string{"status": "under_review"},
			After:        map[string]string{"status": "approved"},
			Context:      map[string]int64{"on_behalf_of": 3},
			SourceIP:     "10.0.0.9",
		})).To(Succeed())

		logs, err := recorder.List(ctx, audit.Filter{ResourceType: "workflow_instance", ResourceID: 7})
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(HaveLen(1))
		Expect(logs[0].SourceIP).To(Equal("10.0.0.9"))

		var after map[string]string
		Expect(json.Unmarshal(logs[0].After, &after)).To(Succeed())
		Expect(after["status"]).To(Equal("approved"))
		Expect(string(logs[0].Context)).To(MatchJSON(`{"on_behalf_of":3}`))
	})

	It("leaves absent snapshots empty", func() {
		Expect(recorder.Record(ctx, audit.Entry{ActorID: 1, Action: "workflow.submit", ResourceType: "workflow_instance", ResourceID: 1})).To(Succeed())

		logs, err := recorder.List(ctx, audit.Filter{ResourceID: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(logs[0].Before).To(BeEmpty())
	})

	It("filters by resource and lists oldest first", func() {
		for i, action := range []string{"workflow.submit", "workflow.approve"} {
			Expect(recorder.Record(ctx, audit.Entry{ActorID: int64(i + 1), Action: action, ResourceType: "workflow_instance", ResourceID: 5})).To(Succeed())
		}
		Expect(recorder.Record(ctx, audit.Entry{ActorID: 9, Action: "delegation.create", ResourceType: "delegation", ResourceID: 5})).To(Succeed())

		logs, err := recorder.List(ctx, audit.Filter{ResourceType: "workflow_instance", ResourceID: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(HaveLen(2))
		Expect(logs[0].Action).To(Equal("workflow.submit"))
		Expect(logs[1].Action).To(Equal("workflow.approve"))

		limited, err := recorder.List(ctx, audit.Filter{ResourceID: 5, Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(limited).To(HaveLen(1))
	})
})
