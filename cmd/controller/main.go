/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"context"
	"os"
	"time"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"
	"github.com/qualified-io/ephemeron-controller/internal/builder"
	"github.com/qualified-io/ephemeron-controller/internal/cleanup"
	"github.com/qualified-io/ephemeron-controller/internal/cluster"
	"github.com/qualified-io/ephemeron-controller/internal/config"
	"github.com/qualified-io/ephemeron-controller/internal/controller"

	"github.com/spf13/cobra"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	//+kubebuilder:scaffold:imports
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var metricsAddr string
	var probeAddr string

	cmd := &cobra.Command{
		Use:   "ephemeron-controller",
		Short: "Runs the Ephemeron controller manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(metricsAddr, probeAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", "0", "The address the metrics endpoint binds to.")
	cmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")

	return cmd
}

func run(metricsAddr, probeAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		setupLog.Error(err, "invalid configuration")
		return err
	}

	opts := zap.Options{
		Development: false,
		Level:       cfg.ZapLevel(),
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	scheme := newScheme()

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                  scheme,
		Metrics:                 metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress:  probeAddr,
		Cache:                   cache.Options{SyncPeriod: &cfg.ResyncInterval},
		GracefulShutdownTimeout: &cfg.ShutdownTimeout,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	reconciler := &controller.EphemeronReconciler{
		Cluster: cluster.NewWithTimeout(mgr.GetClient(), cfg.RequestTimeout),
		BuilderConfig: builder.Config{
			BaseDomain: cfg.Domain,
			TLSScheme:  cfg.TLSScheme,
		},
		Workers:          cfg.Workers,
		ReconcileTimeout: cfg.ReconcileTimeout,
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Ephemeron")
		return err
	}
	//+kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	signalCtx := ctrl.SetupSignalHandler()

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	scheduler := cleanup.NewScheduler(mgr.GetClient(), cfg.ResyncInterval)
	go func() {
		if err := scheduler.Start(schedulerCtx); err != nil {
			setupLog.Error(err, "cleanup scheduler stopped")
		}
	}()

	go func() {
		<-signalCtx.Done()
		setupLog.Info("shutdown signal received, draining in-flight reconciles", "timeout", cfg.ShutdownTimeout)
		time.AfterFunc(cfg.ShutdownTimeout, stopScheduler)
	}()

	setupLog.Info("starting manager")
	if err := mgr.Start(signalCtx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}

	setupLog.Info("exiting")
	return nil
}

func newScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(qualifiedv1alpha1.AddToScheme(scheme))
	//+kubebuilder:scaffold:scheme
	return scheme
}
