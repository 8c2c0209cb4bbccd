package config

import (
	"errors"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/logger"
)

// ErrNoConfigFile is returned by Watch when no config file was resolved.
var ErrNoConfigFile = errors.New("config: no config file to watch")

// Watch re-reads the config file whenever it changes and republishes the
// downstream APIs into store. Calls in flight keep the options they already
// cloned. An update that fails to decode or validate is logged and the
// previous options stay in place. onUpdate, when set, runs after each
// successful republish.
func (l *Loader) Watch(store *downstream.OptionsStore, onUpdate func(DownstreamConfig)) error {
	if l.files.ConfigFile == "" || !l.fs.Exists(l.files.ConfigFile) {
		return ErrNoConfigFile
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		log := l.log.WithFields(map[string]interface{}{"path": e.Name, "op": e.Op.String()})

		var dc DownstreamConfig
		if err := l.v.UnmarshalKey("downstream", &dc); err != nil {
			log.WithError(err).Error("config reload failed")
			return
		}
		dc.ApplyDefaults()
		if err := dc.Validate(); err != nil {
			log.WithError(err).Error("config reload rejected")
			return
		}

		store.Replace(dc.OptionsMap())
		log.Info("downstream options reloaded", logger.Fields("apis", len(dc.APIs)))
		if onUpdate != nil {
			onUpdate(dc)
		}
	})
	l.v.WatchConfig()
	return nil
}
