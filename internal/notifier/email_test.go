package notifier_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nitesh/bill_monitor/internal/notifier"
	"github.com/nitesh/bill_monitor/pkg/models"
)

var sampleBills = []models.DigestBill{
	{
		Number:     "1001",
		Title:      "Проект про земельні субсидії <терміново>",
		URL:        "https://itd.rada.gov.ua/billInfo/Bills/Card/1",
		Date:       "2024-03-01",
		Categories: []models.Category{models.Agricultural, models.Corporate},
	},
	{
		Number:     "1002",
		Title:      "Про пенсії",
		URL:        "https://itd.rada.gov.ua/billInfo/Bills/Card/2",
		Date:       "2024-03-02",
		Categories: []models.Category{models.Social},
	},
}

var _ = Describe("Render", func() {
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	It("lists every bill with its link, date and categories", func() {
		html, err := notifier.Render(sampleBills, day)
		Expect(err).NotTo(HaveOccurred())
		Expect(html).To(ContainSubstring("Звіт за 1 березня 2024 р."))
		Expect(html).To(ContainSubstring("Знайдено 2 нових законопроєктів"))
		Expect(html).To(ContainSubstring(`href="https://itd.rada.gov.ua/billInfo/Bills/Card/1"`))
		Expect(html).To(ContainSubstring("1002: Про пенсії"))
		Expect(html).To(ContainSubstring("Дата реєстрації: 2024-03-02"))
		Expect(html).To(ContainSubstring("background-color:#dcfce7"))
		Expect(html).To(ContainSubstring("background-color:#dbeafe"))
		Expect(html).To(ContainSubstring(">Корпоративна</span>"))
	})

	It("escapes titles", func() {
		html, err := notifier.Render(sampleBills, day)
		Expect(err).NotTo(HaveOccurred())
		Expect(html).To(ContainSubstring("&lt;терміново&gt;"))
		Expect(html).NotTo(ContainSubstring("<терміново>"))
	})

	It("renders a plain-text alternative", func() {
		text := notifier.RenderText(sampleBills, day)
		Expect(text).To(ContainSubstring("1001: Проект про земельні субсидії"))
		Expect(text).To(ContainSubstring("Аграрна, Корпоративна"))
	})

	It("dates the subject", func() {
		Expect(notifier.Subject(day)).To(Equal("Щоденний дайджест законодавства (01.03.2024)"))
	})
})

var _ = Describe("EmailNotifier", func() {
	It("requires a host and recipients", func() {
		_, err := notifier.NewEmailNotifier(notifier.EmailConfig{To: []string{"a@example.com"}}, nil)
		Expect(err).To(HaveOccurred())
		_, err = notifier.NewEmailNotifier(notifier.EmailConfig{Host: "smtp.example.com"}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds an HTML message for the recipients", func() {
		n, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     "smtp.example.com",
			Username: "monitor@example.com",
			To:       []string{"lawyers@example.com"},
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		m, err := n.Message(sampleBills)
		Expect(err).NotTo(HaveOccurred())
		var buf bytes.Buffer
		_, err = m.WriteTo(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("lawyers@example.com"))
		Expect(buf.String()).To(ContainSubstring("monitor@example.com"))
		Expect(buf.String()).To(ContainSubstring("text/html"))
	})

	It("wraps delivery failures", func() {
		n, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     "127.0.0.1",
			Port:     1,
			Username: "monitor@example.com",
			Password: "secret",
			To:       []string{"lawyers@example.com"},
			Timeout:  time.Second,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		err = n.Send(context.Background(), sampleBills)
		var ne *notifier.NotificationError
		Expect(errors.As(err, &ne)).To(BeTrue())
		Expect(ne.Bills).To(Equal(2))
		Expect(ne.Recipients).To(Equal([]string{"lawyers@example.com"}))
	})

	It("rejects an invalid sender address", func() {
		n, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     "smtp.example.com",
			Username: "not an address",
			To:       []string{"lawyers@example.com"},
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		err = n.Send(context.Background(), sampleBills)
		var ne *notifier.NotificationError
		Expect(errors.As(err, &ne)).To(BeTrue())
	})
})

var _ = Describe("LogNotifier", func() {
	It("never fails", func() {
		Expect(notifier.NewLogNotifier(nil).Send(context.Background(), sampleBills)).To(Succeed())
	})
})
