package notification

// DefaultTemplates returns the built-in notice templates. Callers can
// override individual entries with WithTemplate.
func DefaultTemplates() map[NoticeType]NoticeTemplate {
	return map[NoticeType]NoticeTemplate{
		NoticePasswordReset: {
			Subject: "Reset your password",
			Text: "We received a request to reset your password.\n\n" +
				"Open the link below to choose a new one. The link expires in 1 hour.\n\n" +
				"{{.Link}}\n\n" +
				"If you did not request this, you can safely ignore this email.",
			Html: `<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}">Choose a new password</a> (the link expires in 1 hour).</p>
<p>If you did not request this, you can safely ignore this email.</p>`,
		},
		NoticeMFACode: {
			Subject: "Your sign-in code",
			Text: "Your sign-in code is {{.Code}}.\n\n" +
				"It expires in 10 minutes. If you did not try to sign in, change your password.",
			Html: `<p>Your sign-in code is <strong>{{.Code}}</strong>.</p>
<p>It expires in 10 minutes. If you did not try to sign in, change your password.</p>`,
		},
		NoticeVerificationCode: {
			Subject: "Your verification code",
			Text:    "Your verification code is {{.Code}}. It expires in 5 minutes.",
			Html:    `<p>Your verification code is <strong>{{.Code}}</strong>. It expires in 5 minutes.</p>`,
		},
	}
}
