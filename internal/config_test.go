package internal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-approval/internal"
)

func validConfig() *internal.Config {
	return &internal.Config{
		Server: internal.ServerConfig{
			AllowedOrigins:    "https://hr.example.com, *",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			Source:       "postgres://localhost/hr",
		},
		Security: internal.SecurityConfig{
			AccessTokenSecret:  "access-secret-access-secret-0001",
			RefreshTokenSecret: "refresh-secret-refresh-secret-01",
			BCryptCost:         12,
		},
		Workflow: internal.WorkflowConfig{
			DeclineRouting: map[string]string{
				"leave":     "terminate",
				"timesheet": "back_to_step:1",
			},
		},
		Delegation: internal.DelegationConfig{
			MaxWindow:     90 * 24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
	}
}

var _ = Describe("Config", func() {
	It("accepts a complete configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects",
		func(mutate func(*internal.Config), fragment string) {
			cfg := validConfig()
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(fragment)))
		},
		Entry("a missing database source",
			func(c *internal.Config) { c.Database.Source = "" }, "source is required"),
		Entry("more idle than open connections",
			func(c *internal.Config) { c.Database.MaxIdleConns = 20 }, "max_idle_conns"),
		Entry("a short access secret",
			func(c *internal.Config) { c.Security.AccessTokenSecret = "short" }, "access_token_secret"),
		Entry("identical token secrets",
			func(c *internal.Config) { c.Security.RefreshTokenSecret = c.Security.AccessTokenSecret }, "must differ"),
		Entry("an out of range bcrypt cost",
			func(c *internal.Config) { c.Security.BCryptCost = 4 }, "bcrypt_cost"),
		Entry("an unknown decline routing",
			func(c *internal.Config) { c.Workflow.DeclineRouting["leave"] = "escalate" }, "invalid decline routing"),
		Entry("a step routing below one",
			func(c *internal.Config) { c.Workflow.DeclineRouting["leave"] = "back_to_step:0" }, "invalid decline routing"),
		Entry("a negative delegation window",
			func(c *internal.Config) { c.Delegation.MaxWindow = -time.Hour }, "max_window"),
		Entry("a webhook url without http scheme",
			func(c *internal.Config) { c.Notification.WebhookURL = "ftp://hooks.example.com" }, "webhook_url"),
		Entry("a read timeout below the header timeout",
			func(c *internal.Config) { c.Server.ReadTimeout = time.Second }, "read_timeout"),
	)

	It("reports every failing section at once", func() {
		cfg := validConfig()
		cfg.Database.Source = ""
		cfg.Security.BCryptCost = 99
		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("database config")))
		Expect(err).To(MatchError(ContainSubstring("security config")))
	})

	Describe("LoadConfigFromEnv", func() {
		It("reads overrides and falls back to defaults", func() {
			GinkgoT().Setenv("HTTP_PORT", "9090")
			GinkgoT().Setenv("DELEGATION_MAX_WINDOW", "48h")
			GinkgoT().Setenv("WORKFLOW_LEAVE_DECLINE_ROUTING", "back_to_owner")
			GinkgoT().Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Delegation.MaxWindow).To(Equal(48 * time.Hour))
			Expect(cfg.Workflow.DeclineRouting).To(HaveKeyWithValue("leave", "back_to_owner"))
			Expect(cfg.Workflow.DeclineRouting).To(HaveKeyWithValue("timesheet", "back_to_owner"))
			Expect(cfg.Database.MaxOpenConns).To(Equal(25))
		})
	})
})
