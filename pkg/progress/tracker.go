// Package progress 维护一次分析调用内的作业进度，并以不可变快照的形式对外推送。
package progress

import "fmt"

// 常用作业标签
const (
	TagWebSearch   = "web-search"
	TagLLMAnalysis = "llm-analysis"
)

// WebSearchTag 返回第 n 次搜索的作业标签，第一次就是 web-search
func WebSearchTag(n int) string {
	if n == 0 {
		return TagWebSearch
	}
	return fmt.Sprintf("%s-%d", TagWebSearch, n)
}

// ArticleTag 返回第 n 篇文章的作业标签
func ArticleTag(n int) string {
	return fmt.Sprintf("article-%d", n)
}

// Status 作业状态
type Status int

const (
	Pending Status = iota
	InProgress
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// MarshalText 让快照序列化为可读状态名
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Job 一个可追踪的工作单元
type Job struct {
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Percent int    `json:"percent"`
}

// Snapshot 某一时刻作业列表的副本
type Snapshot []Job

// Find 按标签查找作业
func (s Snapshot) Find(tag string) (Job, bool) {
	for _, j := range s {
		if j.Tag == tag {
			return j, true
		}
	}
	return Job{}, false
}

// AllCompleted 所有作业均为 Completed 时返回 true，空快照返回 false
func (s Snapshot) AllCompleted() bool {
	if len(s) == 0 {
		return false
	}
	for _, j := range s {
		if j.Status != Completed {
			return false
		}
	}
	return true
}

// Tags 按展示顺序返回标签
func (s Snapshot) Tags() []string {
	tags := make([]string, len(s))
	for i, j := range s {
		tags[i] = j.Tag
	}
	return tags
}

// Sink 接收快照，不得借此修改 Tracker
type Sink func(Snapshot)

// Tracker 有序作业集合，只由所属调用的控制流写入，不做并发保护
type Tracker struct {
	jobs []Job
}

// NewTracker 创建空的 Tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) index(tag string) int {
	for i := range t.jobs {
		if t.jobs[i].Tag == tag {
			return i
		}
	}
	return -1
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// UpsertJob 不存在时以 tag 作为名称创建，否则原地更新状态和百分比。
// 不校验状态迁移是否合法。
func (t *Tracker) UpsertJob(tag string, status Status, percent int) {
	percent = clampPercent(percent)
	if i := t.index(tag); i >= 0 {
		t.jobs[i].Status = status
		t.jobs[i].Percent = percent
		return
	}
	t.jobs = append(t.jobs, Job{Tag: tag, Name: tag, Status: status, Percent: percent})
}

// Rename 修改展示名称，tag 不存在时什么也不做
func (t *Tracker) Rename(tag, name string) {
	if i := t.index(tag); i >= 0 {
		t.jobs[i].Name = name
	}
}

// InsertBefore 把 job 插入到 referenceTag 之前。
// referenceTag 不存在时追加到末尾；已存在同名 tag 时先移除旧条目。
func (t *Tracker) InsertBefore(referenceTag string, job Job) {
	if job.Name == "" {
		job.Name = job.Tag
	}
	job.Percent = clampPercent(job.Percent)
	if i := t.index(job.Tag); i >= 0 {
		t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
	}
	ref := t.index(referenceTag)
	if ref < 0 {
		t.jobs = append(t.jobs, job)
		return
	}
	t.jobs = append(t.jobs, Job{})
	copy(t.jobs[ref+1:], t.jobs[ref:])
	t.jobs[ref] = job
}

// Merge 把子 Tracker 合并进来，见 MergeJobs
func (t *Tracker) Merge(other *Tracker) {
	if other == nil {
		return
	}
	t.MergeJobs(other.Jobs())
}

// MergeJobs 合并一组作业：已知 tag 保持自身顺序并更新内容；
// 新 tag 插在 jobs 中上一个已知 tag 之后，没有锚点时追加到末尾。
// 对同一组作业重复合并结果不变。
func (t *Tracker) MergeJobs(jobs []Job) {
	anchor := -1
	for _, j := range jobs {
		j.Percent = clampPercent(j.Percent)
		if j.Name == "" {
			j.Name = j.Tag
		}
		if i := t.index(j.Tag); i >= 0 {
			t.jobs[i] = j
			anchor = i
			continue
		}
		if anchor < 0 {
			t.jobs = append(t.jobs, j)
			anchor = len(t.jobs) - 1
			continue
		}
		pos := anchor + 1
		t.jobs = append(t.jobs, Job{})
		copy(t.jobs[pos+1:], t.jobs[pos:])
		t.jobs[pos] = j
		anchor = pos
	}
}

// Jobs 返回当前作业列表的副本
func (t *Tracker) Jobs() Snapshot {
	out := make(Snapshot, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Snapshot 把当前状态的副本推给 sink，sink 为 nil 时忽略
func (t *Tracker) Snapshot(sink Sink) {
	if sink == nil {
		return
	}
	sink(t.Jobs())
}
