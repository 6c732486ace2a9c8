package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

func TestLessonAPI(t *testing.T) {
	instructor := createUser(t, "Lesson Teach", "lessonteach@test.test", user.RoleInstructor)
	student := createUser(t, "Lesson Learn", "lessonlearn@test.test", user.RoleStudent)
	admin := createUser(t, "Lesson Admin", "lessonadmin@test.test", user.RoleAdmin)
	instrToken := getToken(t, instructor)
	stdToken := getToken(t, student)

	crs := createPublishedCourse(t, instructor, "Lessons 101")

	t.Run("video lesson requires a url", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"title": "Clip", "type": "video"})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/lessons", crs.ID), instrToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin cannot author content", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"title": "Admin Lesson", "type": "text", "content": "body"})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/lessons", crs.ID), getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		}, rec)
	})

	lsn1 := addLessonAPI(t, instructor, crs.ID, "One")
	lsn2 := addLessonAPI(t, instructor, crs.ID, "Two")

	t.Run("orders append", func(t *testing.T) {
		assert.Equal(t, 1, lsn1.Order)
		assert.Equal(t, 2, lsn2.Order)
	})

	t.Run("unenrolled student cannot view", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d", lsn1.ID), stdToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "enrollment in this course is required"}),
		}, rec)
	})

	t.Run("viewing tracks progress and navigates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d", lsn1.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var page course.LessonPage
		unmarshallObj(t, rec, &page)
		assert.Equal(t, lsn1.ID, page.Lesson.ID)
		assert.Nil(t, page.Previous)
		if assert.NotNil(t, page.Next) {
			assert.Equal(t, lsn2.ID, page.Next.ID)
		}

		// 1 of 2 lessons done
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d/progress", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var sum enrollment.ProgressSummary
		unmarshallObj(t, rec, &sum)
		assert.Equal(t, enrollment.ProgressSummary{CompletedLessons: 1, TotalLessons: 2, Percent: 50}, sum)
	})

	t.Run("instructor view leaves no progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d", lsn2.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update and delete", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"title": "One, renamed"})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/lessons/%d", lsn1.ID), instrToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got course.Lesson
		unmarshallObj(t, rec, &got)
		assert.Equal(t, "One, renamed", got.Title)
		assert.Equal(t, lsn1.Order, got.Order)

		req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/lessons/%d", lsn2.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d", lsn2.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmissionAPI(t *testing.T) {
	instructor := createUser(t, "Sub Teach", "subteach@test.test", user.RoleInstructor)
	other := createUser(t, "Sub Other", "subother@test.test", user.RoleInstructor)
	student := createUser(t, "Sub Learn", "sublearn@test.test", user.RoleStudent)
	instrToken := getToken(t, instructor)
	stdToken := getToken(t, student)

	crs := createPublishedCourse(t, instructor, "Submissions 101")
	asg := addAssignmentAPI(t, instructor, crs.ID, "HW1", 100)

	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll: code = %v; body %s", rec.Code, rec.Body.String())
	}

	t.Run("past due date rejected", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{
			"title":     "Late",
			"due_date":  "2020-01-01T00:00:00Z",
			"max_score": 50,
		})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/assignments", crs.ID), instrToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var sub submission.Submission

	t.Run("student submits once", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"content":    "here is my homework",
			"attachment": "https://files.test.test/homework.pdf",
		})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/assignments/%d/submissions", asg.ID), stdToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		unmarshallObj(t, rec, &sub)
		assert.Equal(t, student.ID, sub.StudentID)
		assert.Equal(t, "https://files.test.test/homework.pdf", sub.Attachment)

		req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/assignments/%d/submissions", asg.ID), stdToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "already exists"}),
		}, rec)
	})

	t.Run("owner grades", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{"score": 87.5, "feedback": "good effort"})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), instrToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var graded submission.Submission
		unmarshallObj(t, rec, &graded)
		if assert.NotNil(t, graded.Score) {
			assert.Equal(t, 87.5, *graded.Score)
		}
		assert.Equal(t, "good effort", graded.Feedback)
	})

	t.Run("score above max rejected", func(t *testing.T) {
		body := marshallObj(t, map[string]float64{"score": 150})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), instrToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "value out of range"}),
		}, rec)
	})

	t.Run("negative score rejected", func(t *testing.T) {
		body := marshallObj(t, map[string]float64{"score": -5})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), instrToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "value out of range"}),
		}, rec)
	})

	t.Run("other instructor cannot grade", func(t *testing.T) {
		body := marshallObj(t, map[string]float64{"score": 10})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), getToken(t, other), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student reads own, lists own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/submissions/%d", sub.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/submissions", stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var subs []submission.Submission
		unmarshallObj(t, rec, &subs)
		assert.Len(t, subs, 1)
	})

	t.Run("owner lists assignment submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/assignments/%d/submissions", asg.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var subs []submission.Submission
		unmarshallObj(t, rec, &subs)
		assert.Len(t, subs, 1)
	})

	t.Run("student cannot list assignment submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/assignments/%d/submissions", asg.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDashboardAPI(t *testing.T) {
	instructor := createUser(t, "Dash Teach", "dashteach@test.test", user.RoleInstructor)
	student := createUser(t, "Dash Learn", "dashlearn@test.test", user.RoleStudent)
	admin := createUser(t, "Dash Admin", "dashadmin@test.test", user.RoleAdmin)

	crs := createPublishedCourse(t, instructor, "Dashboards 101")
	lsn := addLessonAPI(t, instructor, crs.ID, "Only Lesson")
	asg := addAssignmentAPI(t, instructor, crs.ID, "Only HW", 10)

	stdToken := getToken(t, student)
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll: code = %v; body %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/lessons/%d", lsn.ID), stdToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("view lesson: code = %v; body %s", rec.Code, rec.Body.String())
	}
	body := marshallObj(t, map[string]string{"content": "dashboard homework"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/assignments/%d/submissions", asg.ID), stdToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: code = %v; body %s", rec.Code, rec.Body.String())
	}

	t.Run("student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var dash struct {
			Courses []struct {
				CourseID int                        `json:"course_id"`
				Progress enrollment.ProgressSummary `json:"progress"`
			} `json:"courses"`
			Submissions int `json:"submissions"`
		}
		unmarshallObj(t, rec, &dash)
		if assert.Len(t, dash.Courses, 1) {
			assert.Equal(t, crs.ID, dash.Courses[0].CourseID)
			assert.Equal(t, 100, dash.Courses[0].Progress.Percent)
		}
		assert.Equal(t, 1, dash.Submissions)
	})

	t.Run("instructor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", getToken(t, instructor))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var dash struct {
			Courses             int `json:"courses"`
			Enrollments         int `json:"enrollments"`
			UngradedSubmissions int `json:"ungraded_submissions"`
		}
		unmarshallObj(t, rec, &dash)
		assert.Equal(t, 1, dash.Courses)
		assert.Equal(t, 1, dash.Enrollments)
		assert.Equal(t, 1, dash.UngradedSubmissions)
	})

	t.Run("admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var dash struct {
			Users          map[string]int `json:"users"`
			Courses        int            `json:"courses"`
			Enrollments    int            `json:"enrollments"`
			RecentStudents []user.User    `json:"recent_students"`
		}
		unmarshallObj(t, rec, &dash)
		assert.GreaterOrEqual(t, dash.Users["student"], 1)
		assert.GreaterOrEqual(t, dash.Courses, 1)
		assert.GreaterOrEqual(t, dash.Enrollments, 1)
		assert.NotEmpty(t, dash.RecentStudents)
	})
}
