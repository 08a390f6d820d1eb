package outreach

// DefaultStep is a seed step used when a campaign is created without an
// explicit sequence.
type DefaultStep struct {
	DayOffset int
	Subject   string
	BodyHTML  string
}

// DefaultSteps is the stock Voice AI cold-email sequence seeded into
// campaigns created from the simple form.
var DefaultSteps = []DefaultStep{
	{
		DayOffset: 0,
		Subject:   "After-hours calls → booked appointments (hands-off)",
		BodyHTML: `Hi {{firstname}},<br/><br/>
We build a Voice AI that answers after-hours calls like a trained receptionist — quoting prices, reading your calendar, and booking directly into {{scheduler}}. It references your practice data (hours, insurances, pricing, procedures) and avoids missed opportunities.<br/><br/>
If we routed tonight's calls for {{company}}, how many would you want converted to appointments?<br/><br/>
— Ava · Three Sixty Vue<br/>
<small><a href="{{unsub}}">Unsubscribe</a></small>`,
	},
	{
		DayOffset: 2,
		Subject:   "{{company}}'s missed calls last weekend",
		BodyHTML: `Quick one: most dental practices miss 20–40% of after-hours calls. We turn those into next-day bookings with insurance capture and reminders. Want a 10-min demo with your own pricing and calendar? <br/><br/>
— Ava<br/>
<small><a href="{{unsub}}">Unsubscribe</a></small>`,
	},
	{
		DayOffset: 5,
		Subject:   "Free pilot this week?",
		BodyHTML: `We can stand up a sandbox that reads {{company}}'s hours and availability, then simulate weekend calls. If it doesn't impress, you owe nothing.<br/><br/>
— Ava<br/>
<small><a href="{{unsub}}">Unsubscribe</a></small>`,
	},
}
