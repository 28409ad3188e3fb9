package app

import (
	"context"
	"os"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	for name, j := range a.jobs() {
		id, err := a.sched.AddFunc(j.spec, j.run)
		if err != nil {
			zap.S().Errorf("init job %s error %s", name, err.Error())
			continue
		}
		j.entryID = id
	}

	a.sched.Start()
}

// SchedProcessMonitorTask logs the memory and cpu use of this process
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	cpuuse, err := p.CPUPercent()
	if err != nil {
		cpuuse = 0
	}
	meminfo, err := p.MemoryInfo()
	if err != nil {
		return
	}
	zap.L().Debug("process usage",
		zap.Float64("cpu_percent", cpuuse),
		zap.String("rss", bytes.Format(int64(meminfo.RSS))),
		zap.String("namespace", "monitor"))
}

// SchedOprLogPurgeTask removes operation log rows past the retention days
func (a *Application) SchedOprLogPurgeTask() int64 {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	days := a.GetSettingsInt64Value("system", "oprlog_retention_days")
	if days <= 0 {
		days = 365
	}
	res := a.gormDB.
		Where("opt_time < ?", time.Now().Add(-time.Hour*24*time.Duration(days))).
		Delete(&domain.SysOprLog{})
	if res.Error != nil {
		zap.L().Error("oprlog purge failed", zap.Error(res.Error))
		return 0
	}
	if res.RowsAffected > 0 {
		zap.L().Info("oprlog purged", zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected
}

// SchedOverdueTripsTask warns about planned trips whose date has passed
// the grace period; returns how many were reported
func (a *Application) SchedOverdueTripsTask() int {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if !a.GetSettingsBoolValue("fleet", "overdue_report") {
		return 0
	}
	grace := a.GetSettingsInt64Value("fleet", "overdue_grace_hours")
	before := time.Now().Add(-time.Duration(grace) * time.Hour)
	trips, err := a.fleet.Overdue(context.Background(), before)
	if err != nil {
		zap.L().Error("overdue trips query failed", zap.Error(err))
		return 0
	}
	for _, t := range trips {
		zap.L().Warn("trip overdue",
			zap.String("trip_code", t.TripCode),
			zap.Time("trip_date", t.TripDate),
			zap.String("vehicle", t.VehicleName),
			zap.String("driver", t.DriverName),
			zap.Int64("occupancy", t.Occupancy),
			zap.Int("capacity", t.Capacity),
			zap.String("namespace", "fleet"))
	}
	return len(trips)
}
