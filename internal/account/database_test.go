package account

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	newUser := func(email string) *User {
		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		return &User{
			Email:              email,
			Plan:               StatusTrial,
			SubscriptionStatus: StatusTrial,
			TrialStart:         now,
			TrialEnd:           now.AddDate(0, 0, 30),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}

	Describe("SaveUser and GetUser", func() {
		It("round-trips a user keyed by email", func() {
			user := newUser("someone@example.com")
			Expect(db.SaveUser(user)).To(Succeed())

			got, err := db.GetUser("someone@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(user))
		})

		It("overwrites on repeated saves", func() {
			user := newUser("someone@example.com")
			Expect(db.SaveUser(user)).To(Succeed())

			user.SubscriptionStatus = StatusActive
			user.Plan = "monthly"
			Expect(db.SaveUser(user)).To(Succeed())

			got, err := db.GetUser("someone@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SubscriptionStatus).To(Equal(StatusActive))
		})

		It("returns ErrNotFound for unknown emails", func() {
			_, err := db.GetUser("missing@example.com")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListUsers", func() {
		It("returns an empty slice when no users exist", func() {
			users, err := db.ListUsers()
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(BeEmpty())
		})

		It("returns every saved user", func() {
			Expect(db.SaveUser(newUser("a@example.com"))).To(Succeed())
			Expect(db.SaveUser(newUser("b@example.com"))).To(Succeed())

			users, err := db.ListUsers()
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(2))
		})
	})
})
