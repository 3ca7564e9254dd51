package main

import (
	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/modules/timetable/infrastructure/persistence"
	"github.com/heartware/timetable-sync/pkg/configuration"
)

var envFiles = []string{".env", ".env.local"}

func loadConfig() (*configuration.Configuration, error) {
	cfg, err := configuration.Load(envFiles)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	return cfg, nil
}

func loadSchema(path string) (domain.Schema, error) {
	s, err := persistence.LoadSchema(path)
	if err != nil {
		return domain.Schema{}, withCode(exitUsage, err)
	}
	return s, nil
}

func commandLogger(cfg *configuration.Configuration, name string) *logrus.Entry {
	return logrus.NewEntry(cfg.Logger()).WithField("cmd", name)
}
