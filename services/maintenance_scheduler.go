package services

import (
	"context"
	"sync"
	"time"

	"bankcards/utils"
)

// MaintenanceJob периодическая служебная задача
type MaintenanceJob struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// MaintenanceScheduler запускает служебные задачи по таймерам
type MaintenanceScheduler struct {
	jobs []MaintenanceJob
	wg   sync.WaitGroup
}

// NewMaintenanceScheduler создает планировщик; задачи с неположительным
// интервалом пропускаются
func NewMaintenanceScheduler(jobs ...MaintenanceJob) *MaintenanceScheduler {
	s := &MaintenanceScheduler{}
	for _, job := range jobs {
		if job.Interval > 0 && job.Run != nil {
			s.jobs = append(s.jobs, job)
		}
	}
	return s
}

// Start запускает задачи до отмены ctx
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job MaintenanceJob) {
			defer s.wg.Done()
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.runOnce(ctx, job)
				}
			}
		}(job)
	}
}

// Wait ждет завершения всех задач после отмены контекста
func (s *MaintenanceScheduler) Wait() {
	s.wg.Wait()
}

func (s *MaintenanceScheduler) runOnce(ctx context.Context, job MaintenanceJob) {
	startTime := time.Now()
	removed, err := job.Run(ctx)
	if err != nil {
		utils.LogError("Ошибка служебной задачи %s: %v", job.Name, err)
		return
	}
	if removed > 0 {
		utils.LogDebug("Задача %s удалила %d записей за %s", job.Name, removed, time.Since(startTime))
	}
}
