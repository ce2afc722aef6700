package session

import (
	"encoding/json"
	"strconv"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/streak"
)

// Local cache keys, namespaced per identity.
func nameKey(uid string) string      { return "frenchBreezeUserName_" + uid }
func levelKey(uid string) string     { return "frenchBreezeLevel_" + uid }
func progressKey(uid string) string  { return "frenchBreezeProgress_" + uid }
func streakKey(uid string) string    { return "frenchBreezeStreak_" + uid }
func lastVisitKey(uid string) string { return "frenchBreezeLastVisit_" + uid }

// mirror writes p into the local cache of uid.
func mirror(c cache.Cache, uid string, p profile.Profile) {
	setOrRemove(c, nameKey(uid), p.Name)
	setOrRemove(c, levelKey(uid), string(p.Level))
	mirrorProgress(c, uid, p.Progress)
	c.Set(streakKey(uid), strconv.Itoa(p.DailyStreak))
	setOrRemove(c, lastVisitKey(uid), p.LastLoginDate.String())
}

func mirrorProgress(c cache.Cache, uid string, progress map[string]bool) {
	if progress == nil {
		progress = map[string]bool{}
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return
	}
	c.Set(progressKey(uid), string(raw))
}

func setOrRemove(c cache.Cache, key, value string) {
	if value == "" {
		c.Remove(key)
		return
	}
	c.Set(key, value)
}

// prefill reads the cached profile of uid. Unparseable entries are ignored.
func prefill(c cache.Cache, uid string) profile.Profile {
	p := profile.Profile{Progress: map[string]bool{}}
	if v, ok := c.Get(nameKey(uid)); ok {
		p.Name = v
	}
	if v, ok := c.Get(levelKey(uid)); ok {
		if lvl, err := profile.ParseLevel(v); err == nil {
			p.Level = lvl
		}
	}
	if v, ok := c.Get(progressKey(uid)); ok {
		var progress map[string]bool
		if json.Unmarshal([]byte(v), &progress) == nil && progress != nil {
			p.Progress = progress
		}
	}
	if v, ok := c.Get(streakKey(uid)); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.DailyStreak = n
		}
	}
	if v, ok := c.Get(lastVisitKey(uid)); ok {
		if d, err := streak.ParseDay(v); err == nil {
			p.LastLoginDate = d
		}
	}
	return p
}
