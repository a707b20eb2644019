package main

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"my-page/backend/internal/draft"
)

const dateLayout = "2006-01-02"

// fixture 离线抽签的 YAML 输入
type fixture struct {
	Options      fixtureOptions     `yaml:"options"`
	Apartments   []fixtureApartment `yaml:"apartments"`
	Periods      []fixturePeriod    `yaml:"periods"`
	Participants []fixtureUser      `yaml:"participants"`
	Wishes       []fixtureWish      `yaml:"wishes"`
}

type fixtureOptions struct {
	MaxAllocationsPerUser int `yaml:"max_allocations_per_user"`
	MaxPriority           int `yaml:"max_priority"`
}

type fixtureApartment struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	SortOrder int    `yaml:"sort_order"`
}

type fixturePeriod struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	Excluded    []string `yaml:"excluded"`
}

type fixtureUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type fixtureWish struct {
	ID         string   `yaml:"id"`
	User       string   `yaml:"user"`
	Period     string   `yaml:"period"`
	Priority   int      `yaml:"priority"`
	Apartments []string `yaml:"apartments"`
}

// loadFixture 解析 YAML，未知字段视为错误
func loadFixture(r io.Reader) (*fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("解析 fixture 失败: %w", err)
	}
	return &f, nil
}

// options 未配置的规则取默认值
func (f *fixture) options() draft.Options {
	opts := draft.DefaultOptions()
	if f.Options.MaxAllocationsPerUser > 0 {
		opts.MaxAllocationsPerUser = f.Options.MaxAllocationsPerUser
	}
	if f.Options.MaxPriority > 0 {
		opts.MaxPriority = f.Options.MaxPriority
	}
	return opts
}

// input 转换为分配器输入；愿望缺少 id 时按 user/priority 生成
func (f *fixture) input(seed *int64) (draft.Input, error) {
	in := draft.Input{Seed: seed}

	for _, a := range f.Apartments {
		in.Apartments = append(in.Apartments, draft.Apartment{ID: a.ID, Name: a.Name, SortOrder: a.SortOrder})
	}

	for _, p := range f.Periods {
		start, err := time.Parse(dateLayout, p.Start)
		if err != nil {
			return draft.Input{}, fmt.Errorf("时段 %s 的 start 无效: %w", p.ID, err)
		}
		end, err := time.Parse(dateLayout, p.End)
		if err != nil {
			return draft.Input{}, fmt.Errorf("时段 %s 的 end 无效: %w", p.ID, err)
		}
		in.Periods = append(in.Periods, draft.Period{
			ID:                   p.ID,
			Description:          p.Description,
			StartDate:            start,
			EndDate:              end,
			ExcludedApartmentIDs: p.Excluded,
		})
	}

	for _, u := range f.Participants {
		in.Participants = append(in.Participants, draft.Participant{UserID: u.ID, Name: u.Name, Email: u.Email})
	}

	for _, w := range f.Wishes {
		id := w.ID
		if id == "" {
			id = fmt.Sprintf("w-%s-%d", w.User, w.Priority)
		}
		in.Wishes = append(in.Wishes, draft.Wish{
			ID:                  id,
			UserID:              w.User,
			PeriodID:            w.Period,
			Priority:            w.Priority,
			DesiredApartmentIDs: w.Apartments,
		})
	}

	return in, nil
}
