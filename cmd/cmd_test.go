package cmd

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("migrationPlan", func() {
	DescribeTable("maps flags to goose commands",
		func(status, rollback bool, to, current int64, wantCmd string, wantArgs []string) {
			command, args, err := migrationPlan(status, rollback, to, current)
			Expect(err).NotTo(HaveOccurred())
			Expect(command).To(Equal(wantCmd))
			Expect(args).To(Equal(wantArgs))
		},
		Entry("default applies pending", false, false, int64(-1), int64(3), "up", nil),
		Entry("status", true, false, int64(-1), int64(3), "status", nil),
		Entry("rollback", false, true, int64(-1), int64(3), "down", nil),
		Entry("target above current", false, false, int64(20250101000005), int64(20250101000002), "up-to", []string{"20250101000005"}),
		Entry("target below current", false, false, int64(20250101000002), int64(20250101000005), "down-to", []string{"20250101000002"}),
		Entry("target zero resets", false, false, int64(0), int64(20250101000005), "down-to", []string{"0"}),
		Entry("target equals current", false, false, int64(7), int64(7), "version", nil),
	)

	It("rejects negative versions other than the unset marker", func() {
		_, _, err := migrationPlan(false, false, -5, 0)
		Expect(err).To(MatchError(ContainSubstring("invalid target version -5")))
	})
})

var _ = Describe("loadConfig", func() {
	BeforeEach(func() {
		GinkgoT().Setenv("APP_ENV", "test")
		GinkgoT().Setenv("DOCKER_ENV", "")
	})

	It("reads config.yml from the given directory", func() {
		cfg, err := loadConfig("..")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(8080))
	})

	It("lets ENV_ variables override the file", func() {
		GinkgoT().Setenv("ENV_HTTP_SERVER_PORT", "9191")
		cfg, err := loadConfig("..")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9191))
	})

	It("names the directory when config.yml is missing", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "README"), []byte("empty"), 0o600)).To(Succeed())
		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring(dir)))
	})
})
