// Package assistant 睡眠教练：基于当前快照的对话回复与语音指令解析
package assistant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/metrics"
)

// Emotion 用户情绪
type Emotion string

const (
	EmotionTired      Emotion = "tired"
	EmotionFrustrated Emotion = "frustrated"
	EmotionAnxious    Emotion = "anxious"
	EmotionPositive   Emotion = "positive"
	EmotionConfused   Emotion = "confused"
	EmotionNeutral    Emotion = "neutral"
)

// defaultAge 未提供年龄时按成年人给建议
const defaultAge = 25

var emotionKeywords = []struct {
	emotion Emotion
	words   []string
}{
	{EmotionTired, []string{"tired", "exhausted", "drained"}},
	{EmotionFrustrated, []string{"frustrated", "annoyed", "upset"}},
	{EmotionAnxious, []string{"worried", "anxious", "stressed"}},
	{EmotionPositive, []string{"great", "amazing", "excellent"}},
	{EmotionConfused, []string{"confused", "lost", "help"}},
}

var bedtimePattern = regexp.MustCompile(`(?i)(\d{1,2}):?(\d{2})?\s*(pm|am)?`)

// ChatReply 对话回复
type ChatReply struct {
	Reply   string  `json:"reply"`
	Emotion Emotion `json:"emotion"`
	Route   string  `json:"route,omitempty"` // 需要前端跳转的页面
}

// AdvancedMetrics 由单晚时长推算的扩展指标
type AdvancedMetrics struct {
	SleepEfficiency int     `json:"sleepEfficiency"`
	SleepDebt       float64 `json:"sleepDebt"` // 小时
	RemSleep        int     `json:"remSleep"`
	DeepSleep       int     `json:"deepSleep"`
	SleepCycles     int     `json:"sleepCycles"`
}

// DetectEmotion 按关键字判断情绪，先匹配先得
func DetectEmotion(text string) Emotion {
	input := strings.ToLower(text)
	for _, e := range emotionKeywords {
		if containsAny(input, e.words...) {
			return e.emotion
		}
	}
	return EmotionNeutral
}

// Advanced 基于当前快照的时长计算扩展指标
func Advanced(cur domain.CurrentMetrics) AdvancedMetrics {
	d := float64(metrics.ParseDuration(cur.Duration))
	return AdvancedMetrics{
		SleepEfficiency: metrics.Round(d / (d + 30) * 100),
		SleepDebt:       (8*60 - d) / 60,
		RemSleep:        metrics.Round(d * 0.25),
		DeepSleep:       metrics.Round(d * 0.2),
		SleepCycles:     metrics.Round(d / 90),
	}
}

// Greeting 按时段和年龄生成开场白；age<=0 表示未知
func Greeting(age int, cur domain.CurrentMetrics, now time.Time) string {
	if age <= 0 {
		return "👋 Hi there! I'm your Sleep Coach AI. Can you tell me your age? I'll personalize your sleep insights based on that. You can update it in Settings."
	}
	target := targetSleep(age)

	switch hour := now.Hour(); {
	case hour >= 6 && hour <= 11:
		verdict := "could improve."
		if cur.Quality >= 80 {
			verdict = "is excellent!"
		}
		var group string
		switch {
		case age < 18:
			group = "Growing bodies need quality rest!"
		case age <= 60:
			group = "Adults your age need consistent sleep."
		default:
			group = "Quality sleep becomes more important with age."
		}
		return fmt.Sprintf("🌅 Good morning! At age %d, your sleep quality of %d%% %s %s How are you feeling?", age, cur.Quality, verdict, group)
	case hour >= 12 && hour <= 17:
		verdict := "suggests room for improvement."
		if cur.HeartRate <= 65 {
			verdict = "shows excellent recovery!"
		}
		return fmt.Sprintf("☀️ Good afternoon! For someone who's %d, your heart rate of %d BPM during sleep %s What can I help you with?", age, cur.HeartRate, verdict)
	case hour >= 18 && hour <= 21:
		verdict := "let's work on calmer rest."
		if cur.Motion <= 10 {
			verdict = "you had peaceful sleep!"
		}
		return fmt.Sprintf("🌆 Good evening! Since you're %d, you should aim for %s of sleep tonight. With %d movement events last night, %s Ready to prepare?", age, target, cur.Motion, verdict)
	default:
		return fmt.Sprintf("🌙 It's getting late! At age %d, you need %s for optimal health. How can I help you wind down for the night?", age, target)
	}
}

// Chat 根据消息关键字生成回复；age<=0 时按默认年龄
func Chat(message string, age int, cur domain.CurrentMetrics) ChatReply {
	text := strings.ToLower(message)
	out := ChatReply{Emotion: DetectEmotion(text)}
	adv := Advanced(cur)

	switch {
	case containsAny(text, "how was my sleep", "last night", "sleep quality"):
		out.Reply = sleepReview(cur, adv)

	case strings.Contains(text, "why") && containsAny(text, "tired", "exhausted", "groggy"):
		out.Reply = tiredReasons(cur, adv)

	case containsAny(text, "sleep tips", "tonight", "better sleep"):
		if age <= 0 {
			age = defaultAge
		}
		out.Reply = ageTips(age, cur)

	case strings.Contains(text, "set") && containsAny(text, "bedtime", "alarm", "reminder"):
		if t := bedtimePattern.FindString(text); t != "" {
			out.Route = RouteCalendar
			out.Reply = fmt.Sprintf("Perfect! I've set your bedtime reminder for %s. You can adjust this in Calendar & Alarm page (just opened it for you). I'll also remind you 1 hour before to start winding down. Consistent sleep timing improves your sleep efficiency by up to 15%%! 🌙", strings.TrimSpace(t))
		} else {
			out.Reply = `I'd love to set your bedtime! Just tell me the time like "Set bedtime to 10:30 PM" or "Remind me to sleep at 11". Consistent bedtime is one of the best ways to improve sleep quality. What time works best for you?`
		}

	case containsAny(text, "upload", "data"):
		out.Reply = "To upload sleep data: Go to Dashboard → File Upload section → Choose your CSV/JSON file → Click Upload. I'll analyze it instantly and update all your metrics across the app! The data will appear in graphs, AI insights, and reports. Need help with file format?"

	case out.Emotion == EmotionFrustrated:
		out.Reply = fmt.Sprintf("I understand sleep struggles can be really frustrating 💙 Your feelings are completely valid. With %d%% sleep quality, we have room to improve together. Remember: progress isn't linear, small changes compound over time, and you're already taking positive steps by tracking your sleep. Let's focus on one simple improvement for tonight. You've got this! 💪", cur.Quality)

	case out.Emotion == EmotionAnxious:
		state := "relatively calm sleep"
		if cur.HeartRate > 70 {
			state = "your body might be processing stress"
		}
		out.Reply = fmt.Sprintf("Sleep anxiety is more common than you think, and you're not alone 🤗 Your %d BPM heart rate shows %s. Try: 4-7-8 breathing, progressive muscle relaxation, journaling 3 gratitudes, or our sleep sounds. Anxiety often improves with better sleep hygiene. Peace is possible! 🧘‍♀️", cur.HeartRate, state)

	default:
		out.Reply = fmt.Sprintf("Thanks for reaching out! 💙 Based on your %d%% sleep quality and %d BPM heart rate, I can help with: sleep analysis, tonight's optimization tips, app navigation, bedtime scheduling, lifestyle advice, or emotional support. Your sleep journey is unique, and every question helps us improve together. What interests you most? 🌟", cur.Quality, cur.HeartRate)
	}
	return out
}

func sleepReview(cur domain.CurrentMetrics, adv AdvancedMetrics) string {
	trend := "needs improvement"
	switch {
	case adv.SleepEfficiency >= 90:
		trend = "excellent"
	case adv.SleepEfficiency >= 85:
		trend = "good"
	}
	movement := fmt.Sprintf("%d movement events suggest some restlessness.", cur.Motion)
	if cur.Motion <= 10 {
		movement = "You had peaceful rest with minimal movement."
	}
	closing := "Let's work on improving tonight's rest."
	if cur.Quality >= 80 {
		closing = "Keep up the great work!"
	}
	return fmt.Sprintf("Your sleep quality was %d%% with %d BPM average heart rate. Sleep efficiency: %d%% (%s). %s %s Would you like specific tips for tonight?",
		cur.Quality, cur.HeartRate, adv.SleepEfficiency, trend, movement, closing)
}

func tiredReasons(cur domain.CurrentMetrics, adv AdvancedMetrics) string {
	var reasons []string
	if cur.Quality < 75 {
		reasons = append(reasons, "sleep quality below optimal")
	}
	if cur.HeartRate > 70 {
		reasons = append(reasons, "elevated heart rate during sleep")
	}
	if cur.Motion > 15 {
		reasons = append(reasons, "restless sleep with frequent movements")
	}
	if adv.SleepDebt > 1 {
		reasons = append(reasons, fmt.Sprintf("sleep debt of %.1f hours", adv.SleepDebt))
	}

	main := "sleep fragmentation"
	also := ""
	if len(reasons) > 0 {
		main = reasons[0]
	}
	if len(reasons) > 1 {
		also = "Also noticed: " + strings.Join(reasons[1:], ", ") + "."
	}
	return fmt.Sprintf("You might feel tired due to %s. %s Try going to bed 30 minutes earlier and avoiding screens before sleep. Your body is asking for better recovery time. Small changes make big differences! 💪", main, also)
}

func ageTips(age int, cur domain.CurrentMetrics) string {
	target := targetSleep(age)
	if cur.Quality < 70 {
		var tail string
		switch {
		case age < 18:
			tail = "Growing bodies need extra rest!"
		case age > 60:
			tail = "Quality sleep supports healthy aging."
		default:
			tail = "Your body needs this recovery time!"
		}
		return fmt.Sprintf("At age %d, you need %s of quality sleep. Based on your %d%% quality: 🌙 Go to bed 30 minutes earlier, 📱 no screens 1 hour before bed, 🧘‍♀️ try 4-7-8 breathing, and 🌡️ keep room cool. %s 💙", age, target, cur.Quality, tail)
	}

	var tail string
	switch {
	case age < 18:
		tail = "Great habits for growing!"
	case age > 60:
		tail = "Fantastic for healthy aging!"
	default:
		tail = "Perfect adult sleep routine!"
	}
	return fmt.Sprintf("Excellent %d%% sleep quality for age %d! 🎉 You're getting your recommended %s. Keep up: consistent bedtime, cool dark room, no late screens, gentle stretching. %s 🌟", cur.Quality, age, target, tail)
}

func targetSleep(age int) string {
	switch {
	case age < 18:
		return "8-10 hours"
	case age <= 60:
		return "7-8 hours"
	default:
		return "6-7 hours"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
