package assistant

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"sleepsense/internal/domain"
)

// Action 语音指令类别
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionUpdate   Action = "update"
	ActionAlarm    Action = "alarm"
	ActionQuery    Action = "query"
	ActionPlay     Action = "play"
	ActionTip      Action = "tip"
	ActionHelp     Action = "help"
	ActionUnknown  Action = "unknown"
)

// 前端页面路由
const (
	RouteDashboard = "/dashboard"
	RouteInsights  = "/ai-insights"
	RouteGraphs    = "/graphs"
	RouteLifestyle = "/lifestyle"
	RouteSleepPlan = "/sleep-plan"
	RouteReports   = "/reports"
	RouteSounds    = "/sleep-sounds"
	RouteCalendar  = "/calendar"
	RouteSleepGame = "/sleep-game"
	RouteSettings  = "/settings"
)

// Alarm 语音设置的闹钟
type Alarm struct {
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
	Enabled bool `json:"enabled"`
}

// Command 语音指令解析结果
// Update 非空时由调用方通过 UpdateManualMetrics 写入
type Command struct {
	Action Action                `json:"action"`
	Route  string                `json:"route,omitempty"`
	Speech string                `json:"speech"`
	Update *domain.ManualMetrics `json:"update,omitempty"`
	Alarm  *Alarm                `json:"alarm,omitempty"`
}

// 按顺序匹配，先匹配先得
var navTargets = []struct {
	words  []string
	route  string
	speech string
}{
	{[]string{"dashboard", "home"}, RouteDashboard, "Opening your sleep dashboard."},
	{[]string{"ai insights", "insights"}, RouteInsights, "Opening AI sleep insights."},
	{[]string{"graphs", "charts"}, RouteGraphs, "Opening sleep trend graphs."},
	{[]string{"lifestyle"}, RouteLifestyle, "Opening lifestyle tracker."},
	{[]string{"sleep plan", "plan"}, RouteSleepPlan, "Opening your sleep plan."},
	{[]string{"reports"}, RouteReports, "Opening sleep reports."},
	{[]string{"sounds", "music"}, RouteSounds, "Opening sleep sounds."},
	{[]string{"calendar", "alarm"}, RouteCalendar, "Opening calendar and alarm."},
	{[]string{"game", "animal"}, RouteSleepGame, "Opening sleep animal challenge."},
	{[]string{"settings"}, RouteSettings, "Opening settings."},
}

// Tips 随机播报的睡眠小贴士
var Tips = []string{
	"Go to bed at the same time every night to improve sleep consistency.",
	"Keep your bedroom temperature between 65 to 68 degrees.",
	"Avoid caffeine 6 hours before bedtime.",
	"Try the 4-7-8 breathing technique: inhale for 4, hold for 7, exhale for 8.",
	"Use blackout curtains to create a dark sleep environment.",
	"Put away electronic devices 1 hour before sleep.",
	"Consider a warm shower before bed to lower body temperature.",
}

const (
	speechHelp    = "I can navigate pages, update sleep data, set alarms, play sounds, and provide sleep insights. Try saying: go to dashboard, set heart rate 65, play rain sounds, or how was my sleep."
	speechUnknown = `I did not understand that command. Say "what can you do" to hear available voice commands.`
)

var numberPattern = regexp.MustCompile(`\d+`)

// Dispatcher 语音指令解析器
type Dispatcher struct {
	intn func(n int) int
}

// NewDispatcher intn 为 nil 时使用 math/rand
func NewDispatcher(intn func(n int) int) *Dispatcher {
	if intn == nil {
		intn = rand.Intn
	}
	return &Dispatcher{intn: intn}
}

// Dispatch 使用默认随机源解析指令
func Dispatch(command string, cur domain.CurrentMetrics) Command {
	return NewDispatcher(nil).Dispatch(command, cur)
}

// Dispatch 解析一条语音指令（不区分大小写）
func (d *Dispatcher) Dispatch(command string, cur domain.CurrentMetrics) Command {
	c := strings.ToLower(strings.TrimSpace(command))

	switch {
	case containsAny(c, "commands", "what can you do"):
		return Command{Action: ActionHelp, Speech: speechHelp}

	case containsAny(c, "go to", "open", "show"):
		for _, t := range navTargets {
			if containsAny(c, t.words...) {
				return Command{Action: ActionNavigate, Route: t.route, Speech: t.speech}
			}
		}

	case containsAny(c, "set", "update", "record"):
		if cmd, ok := metricUpdate(c); ok {
			return cmd
		}

	case containsAny(c, "how", "what"):
		if cmd, ok := query(c, cur); ok {
			return cmd
		}

	case strings.Contains(c, "play"):
		cmd := Command{Action: ActionPlay, Route: RouteSounds}
		switch {
		case strings.Contains(c, "rain"):
			cmd.Speech = "Playing rain sounds."
		case strings.Contains(c, "piano"):
			cmd.Speech = "Playing piano melody."
		case containsAny(c, "tamil", "lullaby"):
			cmd.Speech = "Playing Tamil lullaby."
		default:
			cmd.Speech = "Opening sleep sounds. Choose your preferred sound."
		}
		return cmd

	case containsAny(c, "tip", "advice", "help"):
		return Command{Action: ActionTip, Speech: Tips[d.intn(len(Tips))]}
	}

	return Command{Action: ActionUnknown, Speech: speechUnknown}
}

func metricUpdate(c string) (Command, bool) {
	nums := numberPattern.FindAllString(c, -1)
	if len(nums) == 0 {
		return Command{}, false
	}
	n, err := strconv.Atoi(nums[0])
	if err != nil {
		return Command{}, false
	}

	var m domain.ManualMetrics
	var speech string
	switch {
	case strings.Contains(c, "heart rate"):
		m.HeartRate = &n
		speech = fmt.Sprintf("Heart rate updated to %d beats per minute.", n)
	case strings.Contains(c, "sleep quality"):
		m.Quality = &n
		speech = fmt.Sprintf("Sleep quality updated to %d percent.", n)
	case strings.Contains(c, "oxygen"):
		m.SpO2 = &n
		speech = fmt.Sprintf("Oxygen saturation updated to %d percent.", n)
	case strings.Contains(c, "motion"):
		m.Motion = &n
		speech = fmt.Sprintf("Motion level updated to %d.", n)
	case strings.Contains(c, "snoring"):
		m.Snoring = &n
		speech = fmt.Sprintf("Snoring level updated to %d out of 10.", n)
	case strings.Contains(c, "alarm"):
		minute := 0
		if len(nums) > 1 {
			minute, _ = strconv.Atoi(nums[1])
		}
		return Command{
			Action: ActionAlarm,
			Speech: fmt.Sprintf("Alarm set for %d:%02d.", n, minute),
			Alarm:  &Alarm{Hour: n, Minute: minute, Enabled: true},
		}, true
	default:
		return Command{}, false
	}
	return Command{Action: ActionUpdate, Speech: speech, Update: &m}, true
}

func query(c string, cur domain.CurrentMetrics) (Command, bool) {
	var speech string
	switch {
	case strings.Contains(c, "sleep") && containsAny(c, "last night", "today"):
		verdict := "poor"
		switch {
		case cur.Quality >= 80:
			verdict = "excellent"
		case cur.Quality >= 70:
			verdict = "good"
		}
		speech = fmt.Sprintf("Your sleep was %s with %d%% quality. Duration: %s. Heart rate: %d BPM.", verdict, cur.Quality, cur.Duration, cur.HeartRate)
	case strings.Contains(c, "heart rate"):
		speech = fmt.Sprintf("Your current heart rate is %d beats per minute.", cur.HeartRate)
	case containsAny(c, "sleep score", "quality"):
		speech = fmt.Sprintf("Your sleep quality score is %d percent.", cur.Quality)
	case containsAny(c, "animal", "level"):
		speech = fmt.Sprintf("You are currently a sleep %s with %d%% quality.", SleepAnimal(cur.Quality), cur.Quality)
	default:
		return Command{}, false
	}
	return Command{Action: ActionQuery, Speech: speech}, true
}

// SleepAnimal 睡眠质量对应的动物等级
func SleepAnimal(quality int) string {
	switch {
	case quality > 90:
		return "Kaniska"
	case quality > 75:
		return "Lathika"
	case quality > 50:
		return "Panda"
	default:
		return "Elephant"
	}
}
