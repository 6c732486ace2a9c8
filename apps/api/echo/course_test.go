package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

func TestCourseAPI(t *testing.T) {
	instructor := createUser(t, "Course Teach", "courseteach@test.test", user.RoleInstructor)
	student := createUser(t, "Course Learn", "courselearn@test.test", user.RoleStudent)
	instrToken := getToken(t, instructor)
	stdToken := getToken(t, student)

	var crs course.Course

	t.Run("instructor creates", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"title":       "API Design",
			"description": "REST and friends",
			"thumbnail":   "https://cdn.test.test/api-design.png",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", instrToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		unmarshallObj(t, rec, &crs)
		assert.Equal(t, instructor.ID, crs.InstructorID)
		assert.Equal(t, "https://cdn.test.test/api-design.png", crs.Thumbnail)
		assert.False(t, crs.Published)
	})

	t.Run("student cannot create", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"title": "Nope"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", stdToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		}, rec)
	})

	t.Run("missing title", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", instrToken, marshallObj(t, map[string]string{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"title": "this field is required"}),
		}, rec)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/abc", instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("draft hidden from student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "this course is not published"}),
		}, rec)
	})

	t.Run("publish", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{"published": true})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/courses/%d", crs.ID), instrToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		unmarshallObj(t, rec, &crs)
		assert.True(t, crs.Published)
	})

	t.Run("student sees published", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d", crs.ID), stdToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var got course.Course
		unmarshallObj(t, rec, &got)
		assert.Equal(t, crs.ID, got.ID)
	})

	t.Run("student list excludes drafts", func(t *testing.T) {
		draftBody := marshallObj(t, map[string]string{"title": "Hidden Draft"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", instrToken, draftBody)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/courses", stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var courses []course.Course
		unmarshallObj(t, rec, &courses)
		for _, c := range courses {
			assert.True(t, c.Published)
		}
	})

	t.Run("unknown course 404s", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/99999", stdToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "course not found"}),
		}, rec)
	})

	t.Run("garbage id 400s", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/banana", stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCourseAPI_Enrollment(t *testing.T) {
	instructor := createUser(t, "Enr Teach", "enrteach@test.test", user.RoleInstructor)
	student := createUser(t, "Enr Learn", "enrlearn@test.test", user.RoleStudent)
	admin := createUser(t, "Enr Admin", "enradmin@test.test", user.RoleAdmin)
	instrToken := getToken(t, instructor)
	stdToken := getToken(t, student)
	adminToken := getToken(t, admin)

	crs := createPublishedCourse(t, instructor, "Enrollment 101")

	t.Run("student enrolls", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var enr enrollment.Enrollment
		unmarshallObj(t, rec, &enr)
		assert.Equal(t, student.ID, enr.StudentID)
	})

	t.Run("duplicate enroll conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "already exists"}),
		}, rec)
	})

	t.Run("instructor cannot enroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner lists roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d/roster", crs.ID), instrToken)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var roster []enrollment.Enrollment
		unmarshallObj(t, rec, &roster)
		assert.Len(t, roster, 1)
	})

	t.Run("student cannot list roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%d/roster", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin enrolls another student", func(t *testing.T) {
		std2 := createUser(t, "Second Learn", "secondlearn@test.test", user.RoleStudent)
		body := marshallObj(t, map[string]int{"student_id": std2.ID, "course_id": crs.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/enrollments", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("admin enrollments are admin-only", func(t *testing.T) {
		body := marshallObj(t, map[string]int{"student_id": student.ID, "course_id": crs.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", instrToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student detail lists enrollments with progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/users/%d/enrollments", student.ID), adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var details []struct {
			CourseID int                        `json:"course_id"`
			Progress enrollment.ProgressSummary `json:"progress"`
		}
		unmarshallObj(t, rec, &details)
		if assert.Len(t, details, 1) {
			assert.Equal(t, crs.ID, details[0].CourseID)
		}

		// non-admins cannot pry into someone else's enrollments
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/users/%d/enrollments", student.ID), instrToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unenroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/courses/%d/enroll", crs.ID), stdToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCourseAPI_Reassign(t *testing.T) {
	instructor := createUser(t, "From Teach", "fromteach@test.test", user.RoleInstructor)
	newOwner := createUser(t, "To Teach", "toteach@test.test", user.RoleInstructor)
	admin := createUser(t, "Re Admin", "readmin@test.test", user.RoleAdmin)

	crs := createPublishedCourse(t, instructor, "Handover 101")

	t.Run("admin reassigns", func(t *testing.T) {
		body := marshallObj(t, map[string]int{"instructor_id": newOwner.ID})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/reassign", crs.ID), getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var got course.Course
		unmarshallObj(t, rec, &got)
		assert.Equal(t, newOwner.ID, got.InstructorID)
	})

	t.Run("instructor cannot reassign", func(t *testing.T) {
		body := marshallObj(t, map[string]int{"instructor_id": instructor.ID})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/reassign", crs.ID), getToken(t, newOwner), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// createPublishedCourse seeds a published course owned by the instructor.
func createPublishedCourse(t *testing.T, instructor user.User, title string) course.Course {
	t.Helper()
	token := getToken(t, instructor)

	body := marshallObj(t, map[string]string{"title": title})
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createPublishedCourse(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	var crs course.Course
	unmarshallObj(t, rec, &crs)

	pubBody := marshallObj(t, map[string]interface{}{"published": true})
	req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/courses/%d", crs.ID), token, pubBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("createPublishedCourse(): publish code = %v; body %s", rec.Code, rec.Body.String())
	}
	unmarshallObj(t, rec, &crs)
	return crs
}

// addLessonAPI seeds a lesson through the API.
func addLessonAPI(t *testing.T, instructor user.User, courseID int, title string) course.Lesson {
	t.Helper()
	body := marshallObj(t, map[string]string{"title": title, "type": "text", "content": "lesson body"})
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/lessons", courseID), getToken(t, instructor), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addLessonAPI(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	var lsn course.Lesson
	unmarshallObj(t, rec, &lsn)
	return lsn
}

// addAssignmentAPI seeds an assignment through the API.
func addAssignmentAPI(t *testing.T, instructor user.User, courseID int, title string, maxScore int) course.Assignment {
	t.Helper()
	body := marshallObj(t, map[string]interface{}{
		"title":     title,
		"due_date":  time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339),
		"max_score": maxScore,
	})
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%d/assignments", courseID), getToken(t, instructor), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addAssignmentAPI(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	var asg course.Assignment
	unmarshallObj(t, rec, &asg)
	return asg
}
