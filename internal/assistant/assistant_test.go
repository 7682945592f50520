package assistant

import (
	"testing"
	"time"

	"sleepsense/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCurrent() domain.CurrentMetrics {
	return domain.CurrentMetrics{
		Quality:   85,
		Duration:  "7h 32m",
		Type:      domain.SleepTypeNormal,
		HeartRate: 65,
		SpO2:      98,
		Motion:    12,
		Snoring:   3,
		DeepSleep: "2h 15m",
	}
}

func TestDetectEmotion(t *testing.T) {
	tests := map[string]Emotion{
		"I'm so exhausted":            EmotionTired,
		"this is annoying, I'm upset": EmotionFrustrated,
		"I feel stressed":             EmotionAnxious,
		"Had an AMAZING night":        EmotionPositive,
		"can you help":                EmotionConfused,
		"hello":                       EmotionNeutral,
		"tired and frustrated":        EmotionTired,
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectEmotion(in), in)
	}
}

func TestAdvanced(t *testing.T) {
	adv := Advanced(sampleCurrent()) // 452 分钟
	assert.Equal(t, 94, adv.SleepEfficiency)
	assert.InDelta(t, 0.4667, adv.SleepDebt, 0.001)
	assert.Equal(t, 113, adv.RemSleep)
	assert.Equal(t, 90, adv.DeepSleep)
	assert.Equal(t, 5, adv.SleepCycles)
}

func TestChat_Routes(t *testing.T) {
	cur := sampleCurrent()

	r := Chat("How was my sleep?", 30, cur)
	assert.Contains(t, r.Reply, "Your sleep quality was 85% with 65 BPM")
	assert.Contains(t, r.Reply, "Sleep efficiency: 94% (excellent)")
	assert.Contains(t, r.Reply, "12 movement events suggest some restlessness.")

	r = Chat("why am I so tired", 30, domain.CurrentMetrics{Quality: 60, HeartRate: 75, Motion: 20, Duration: "6h 0m"})
	assert.Equal(t, EmotionTired, r.Emotion)
	assert.Contains(t, r.Reply, "due to sleep quality below optimal.")
	assert.Contains(t, r.Reply, "Also noticed: elevated heart rate during sleep, restless sleep with frequent movements, sleep debt of 2.0 hours.")

	r = Chat("any sleep tips?", 0, cur)
	assert.Contains(t, r.Reply, "for age 25")
	assert.Contains(t, r.Reply, "7-8 hours")

	r = Chat("better sleep please", 15, domain.CurrentMetrics{Quality: 50})
	assert.Contains(t, r.Reply, "At age 15, you need 8-10 hours")
	assert.Contains(t, r.Reply, "Growing bodies need extra rest!")

	r = Chat("Set bedtime to 10:30 pm", 30, cur)
	assert.Equal(t, RouteCalendar, r.Route)
	assert.Contains(t, r.Reply, "reminder for 10:30 pm.")

	r = Chat("set a reminder", 30, cur)
	assert.Empty(t, r.Route)
	assert.Contains(t, r.Reply, "Just tell me the time")

	r = Chat("how do I upload a file", 30, cur)
	assert.Contains(t, r.Reply, "File Upload section")

	r = Chat("I'm annoyed", 30, cur)
	assert.Contains(t, r.Reply, "With 85% sleep quality")

	r = Chat("I'm worried", 30, cur)
	assert.Contains(t, r.Reply, "relatively calm sleep")

	r = Chat("hi", 30, cur)
	assert.Equal(t, EmotionNeutral, r.Emotion)
	assert.Contains(t, r.Reply, "Thanks for reaching out!")
}

func TestGreeting(t *testing.T) {
	cur := sampleCurrent()
	at := func(h int) time.Time { return time.Date(2024, 1, 16, h, 0, 0, 0, time.UTC) }

	assert.Contains(t, Greeting(0, cur, at(9)), "Can you tell me your age?")
	assert.Contains(t, Greeting(30, cur, at(9)), "Good morning! At age 30, your sleep quality of 85% is excellent! Adults your age")
	assert.Contains(t, Greeting(70, cur, at(14)), "shows excellent recovery!")
	assert.Contains(t, Greeting(30, cur, at(19)), "aim for 7-8 hours of sleep tonight. With 12 movement events last night, let's work on calmer rest.")
	assert.Contains(t, Greeting(65, cur, at(23)), "you need 6-7 hours")
	assert.Contains(t, Greeting(30, cur, at(3)), "It's getting late!")
}

func TestDispatch_Navigate(t *testing.T) {
	d := NewDispatcher(func(int) int { return 0 })
	cur := sampleCurrent()

	tests := map[string]string{
		"go to dashboard":      RouteDashboard,
		"open ai insights":     RouteInsights,
		"show me the charts":   RouteGraphs,
		"open lifestyle":       RouteLifestyle,
		"open my plan":         RouteSleepPlan,
		"show reports":         RouteReports,
		"open music":           RouteSounds,
		"go to alarm":          RouteCalendar,
		"open the animal game": RouteSleepGame,
		"open settings":        RouteSettings,
	}
	for in, route := range tests {
		cmd := d.Dispatch(in, cur)
		assert.Equal(t, ActionNavigate, cmd.Action, in)
		assert.Equal(t, route, cmd.Route, in)
	}

	assert.Equal(t, ActionUnknown, d.Dispatch("open the fridge", cur).Action)
}

func TestDispatch_Update(t *testing.T) {
	d := NewDispatcher(nil)
	cur := sampleCurrent()

	cmd := d.Dispatch("Set heart rate 72", cur)
	require.Equal(t, ActionUpdate, cmd.Action)
	require.NotNil(t, cmd.Update)
	require.NotNil(t, cmd.Update.HeartRate)
	assert.Equal(t, 72, *cmd.Update.HeartRate)
	assert.Nil(t, cmd.Update.Quality)
	assert.Equal(t, "Heart rate updated to 72 beats per minute.", cmd.Speech)

	cmd = d.Dispatch("record snoring 4", cur)
	require.NotNil(t, cmd.Update)
	assert.Equal(t, 4, *cmd.Update.Snoring)
	assert.Equal(t, "Snoring level updated to 4 out of 10.", cmd.Speech)

	cmd = d.Dispatch("update oxygen to 95", cur)
	assert.Equal(t, 95, *cmd.Update.SpO2)

	cmd = d.Dispatch("set alarm 6 5", cur)
	assert.Equal(t, ActionAlarm, cmd.Action)
	assert.Nil(t, cmd.Update)
	assert.Equal(t, &Alarm{Hour: 6, Minute: 5, Enabled: true}, cmd.Alarm)
	assert.Equal(t, "Alarm set for 6:05.", cmd.Speech)

	assert.Equal(t, ActionUnknown, d.Dispatch("set heart rate", cur).Action)
}

func TestDispatch_QueriesAndMisc(t *testing.T) {
	d := NewDispatcher(func(n int) int { return n - 1 })
	cur := sampleCurrent()

	assert.Equal(t, "Your sleep was excellent with 85% quality. Duration: 7h 32m. Heart rate: 65 BPM.",
		d.Dispatch("how did I sleep last night", cur).Speech)
	assert.Equal(t, "Your current heart rate is 65 beats per minute.", d.Dispatch("what is my heart rate", cur).Speech)
	assert.Equal(t, "Your sleep quality score is 85 percent.", d.Dispatch("what is my sleep score", cur).Speech)
	assert.Equal(t, "You are currently a sleep Lathika with 85% quality.", d.Dispatch("what level am I", cur).Speech)

	cmd := d.Dispatch("play rain", cur)
	assert.Equal(t, ActionPlay, cmd.Action)
	assert.Equal(t, RouteSounds, cmd.Route)
	assert.Equal(t, "Playing rain sounds.", cmd.Speech)
	assert.Equal(t, "Playing Tamil lullaby.", d.Dispatch("play a lullaby", cur).Speech)

	cmd = d.Dispatch("give me a tip", cur)
	assert.Equal(t, ActionTip, cmd.Action)
	assert.Equal(t, Tips[len(Tips)-1], cmd.Speech)

	assert.Equal(t, ActionHelp, d.Dispatch("what can you do", cur).Action)
	assert.Equal(t, ActionUnknown, d.Dispatch("banana", cur).Action)
}

func TestSleepAnimal(t *testing.T) {
	assert.Equal(t, "Kaniska", SleepAnimal(91))
	assert.Equal(t, "Lathika", SleepAnimal(90))
	assert.Equal(t, "Panda", SleepAnimal(75))
	assert.Equal(t, "Elephant", SleepAnimal(50))
}
