// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

//go:build integration

package hooks_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/Foxius/wither-pass/internal/hook"
	"github.com/Foxius/wither-pass/internal/hook/hooktest"
	"github.com/Foxius/wither-pass/internal/modhost"
	"github.com/Foxius/wither-pass/internal/observability"
)

const interval = 10 * time.Millisecond

func installModule(root, dir, manifest string) {
	moduleDir := filepath.Join(root, dir)
	Expect(os.MkdirAll(moduleDir, 0o750)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(moduleDir, modhost.ManifestFile), []byte(manifest), 0o600)).To(Succeed())
}

var _ = Describe("Hook activation against a modules directory", func() {
	var (
		ctx       context.Context
		root      string
		host      *modhost.Directory
		loop      *hook.Loop
		scheduler *hook.Scheduler
		registrar *hooktest.Registrar
		registry  *hook.Registry
		quiet     *slog.Logger
	)

	newRegistry := func(disabled []string, opts ...hook.SchedulerOption) {
		set, err := hook.NewDisabledSet(disabled)
		Expect(err).NotTo(HaveOccurred())
		scheduler = hook.NewScheduler(loop, append([]hook.SchedulerOption{
			hook.WithInterval(interval),
			hook.WithLogger(quiet),
		}, opts...)...)
		registry = hook.NewRegistry(host, registrar, set, scheduler, hook.WithRegistryLogger(quiet))
		DeferCleanup(registry.Close)
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		quiet = slog.New(slog.NewTextHandler(io.Discard, nil))
		host = modhost.NewDirectory(root, modhost.WithLogger(quiet))
		loop = hook.NewLoop()
		DeferCleanup(loop.Close)
		registrar = &hooktest.Registrar{}
	})

	Describe("disabled hooks", func() {
		It("never runs the routine nor schedules a recheck", func() {
			newRegistry([]string{"foo"})
			installModule(root, "foo", "name: Foo\nversion: 1.0.0\n")
			inst := &hooktest.CountingInstaller{}

			Expect(registry.Activate(ctx, "Foo", inst, "")).To(BeFalse())

			Expect(inst.Calls()).To(BeZero())
			Expect(loop.Active()).To(BeZero())
			Expect(registry.ListDisabledHooks()).To(Equal([]string{"foo"}))
			Expect(registry.ListActiveHooks()).To(BeEmpty())
		})
	})

	Describe("late modules", func() {
		It("activates once the module is installed", func() {
			newRegistry(nil)
			inst := &hooktest.CountingInstaller{}

			Expect(registry.Activate(ctx, "Bar", inst, "")).To(BeFalse())
			Expect(loop.Active()).To(Equal(1))

			Eventually(func() int {
				info, _ := scheduler.Attempt("Bar")
				return info.Attempts
			}).WithTimeout(time.Second).Should(BeNumerically(">=", 2))
			installModule(root, "bar", "name: Bar\nversion: 1.0.0\n")

			Eventually(registry.ListActiveHooks).WithTimeout(2 * time.Second).Should(Equal([]string{"Bar"}))
			Expect(inst.Calls()).To(Equal(1))
			Eventually(loop.Active).Should(BeZero())
			Consistently(inst.Calls).WithDuration(5 * interval).Should(Equal(1))
		})

		It("gives up once the attempt budget is spent", func() {
			newRegistry(nil, hook.WithMaxAttempts(3))
			inst := &hooktest.CountingInstaller{}

			registry.Activate(ctx, "Bar", inst, "")

			Eventually(loop.Active).WithTimeout(2 * time.Second).Should(BeZero())
			info, ok := scheduler.Attempt("Bar")
			Expect(ok).To(BeTrue())
			Expect(info.Attempts).To(Equal(4))
			Expect(info.Active).To(BeFalse())

			installModule(root, "bar", "name: Bar\nversion: 1.0.0\n")
			Consistently(inst.Calls).WithDuration(5 * interval).Should(BeZero())

			By("an explicit request still activates the now-ready module")
			Expect(registry.Activate(ctx, "Bar", inst, "")).To(BeTrue())
			Expect(inst.Calls()).To(Equal(1))
		})

		It("waits for a disabled module to be enabled", func() {
			newRegistry(nil)
			installModule(root, "jobs", "name: Jobs\nversion: 4.17.2\nenabled: false\n")
			inst := &hooktest.CountingInstaller{}

			Expect(registry.Activate(ctx, "Jobs", inst, "")).To(BeFalse())
			installModule(root, "jobs", "name: Jobs\nversion: 4.17.2\n")

			Eventually(registry.ListActiveHooks).WithTimeout(2 * time.Second).Should(ContainElement("Jobs"))
		})
	})

	Describe("version gates", func() {
		It("activates supported versions only", func() {
			newRegistry(nil)
			installModule(root, "new", "name: MythicMobs\nversion: 5.6.1 Build 42\n")
			installModule(root, "old", "name: Quests\nversion: \"3.2\"\n")
			gate, err := hook.Constraint(">= 4")
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.ActivateVersioned(ctx, "MythicMobs", &hooktest.CountingInstaller{}, "", gate)).To(BeTrue())
			Expect(registry.ActivateVersioned(ctx, "Quests", &hooktest.CountingInstaller{}, "", gate)).To(BeTrue())

			Expect(registry.ListActiveHooks()).To(Equal([]string{"MythicMobs"}))
			Expect(loop.Active()).To(BeZero())
		})
	})

	Describe("host readiness", func() {
		It("activates after the host reports enabled", func() {
			newRegistry(nil)
			inst := &hooktest.CountingInstaller{}

			Expect(registry.ActivateOnHostReady(ctx, inst)).To(BeFalse())
			host.SetHostEnabled(true)

			Eventually(registry.ListActiveHooks).WithTimeout(2 * time.Second).Should(Equal([]string{hook.DefaultHostHookName}))
			Expect(inst.Calls()).To(Equal(1))
		})
	})

	Describe("concurrent requests", func() {
		It("runs the routine exactly once", func() {
			newRegistry(nil)
			installModule(root, "citizens", "name: Citizens\nversion: 2.0.30\n")
			inst := &hooktest.CountingInstaller{}

			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					registry.Activate(ctx, "citizens", inst, "")
				}()
			}
			wg.Wait()

			Expect(inst.Calls()).To(Equal(1))
			Expect(registrar.Listeners()).To(HaveLen(1))
		})
	})

	Describe("observability", func() {
		It("serves the registry snapshot", func() {
			server := observability.NewServer("127.0.0.1:0", nil)
			newRegistry([]string{"Foo"}, hook.WithMetrics(hook.NewMetrics(server.Registerer())))
			server.SetSnapshot(registry.Snapshot)
			_, err := server.Start()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { _ = server.Stop(context.Background()) })

			installModule(root, "citizens", "name: Citizens\nversion: 2.0.30\n")
			registry.Activate(ctx, "Citizens", &hooktest.CountingInstaller{}, "")
			registry.Activate(ctx, "Bar", &hooktest.CountingInstaller{}, "")

			resp, err := http.Get("http://" + server.Addr() + "/hooks") //nolint:gosec,noctx // test-local address
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = resp.Body.Close() }()

			var snap hook.Snapshot
			Expect(json.NewDecoder(resp.Body).Decode(&snap)).To(Succeed())
			Expect(snap.Active).To(Equal([]string{"Citizens"}))
			Expect(snap.Disabled).To(Equal([]string{"Foo"}))
			Expect(snap.Pending).To(Equal(1))

			metrics, err := http.Get("http://" + server.Addr() + "/metrics") //nolint:gosec,noctx // test-local address
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = metrics.Body.Close() }()
			body, err := io.ReadAll(metrics.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`witherpass_hook_activations_total{hook="Citizens",status="ok"} 1`))
		})
	})
})
