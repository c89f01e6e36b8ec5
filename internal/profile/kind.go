package profile

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindUniversity Kind = "university"
	KindProgram    Kind = "program"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUniversity:
		return KindUniversity, nil
	case KindProgram:
		return KindProgram, nil
	}
	return "", fmt.Errorf("unknown profile kind %q", s)
}

// Field is an English output key and its Chinese counterpart.
type Field struct {
	EN string
	CH string
}

var universityFields = []Field{
	{"id_", "id_"},
	{"university_name", "学校名"},
	{"abbreviation", "缩写"},
	{"university_type", "学校类型"},
	{"graduation_year", "毕业时间"},
	{"location", "地理位置"},
	{"graduation_rate", "毕业率"},
	{"domestic_student_tuition", "本地学生学费"},
	{"international_student_tuition", "国际学生学费"},
	{"description", "简介"},
	{"ranking", "排名"},
	{"ranking_qs_news_2024", "QS新闻2024排名"},
	{"ranking_us_news_2023", "美国新闻2023排名"},
	{"ranking_times_rank_2024", "泰晤士2024排名"},
	{"ranking_arwu_rank_2023", "软科世界大学2023排名"},
	{"website", "学校官方网站"},
	{"important_calendar", "学校重要日历"},
	{"statistics", "统计数据"},
	{"faculty", "院校"},
	{"programs", "专业"},
	{"popular_programs", "热门专业"},
	{"characteristics", "学校特色"},
	{"others", "其他"},
	{"wikipedia", "维基百科页"},
}

var programFields = []Field{
	{"program_id", "program_id"},
	{"university_id", "学校id"},
	{"university_name", "学校"},
	{"main_subject_area", "主要学科领域"},
	{"program_name", "专业名"},
	{"degree_type", "学位分类"},
	{"academic_degree_level", "学位层次"},
	{"qs_general_program", "QS排名学科分类"},
	{"qs_program_link", "QS学科网站"},
	{"university_type", "学校类型"},
	{"graduation_year", "毕业时间"},
	{"location", "地理位置"},
	{"graduation_rate", "毕业率"},
	{"domestic_student_tuition", "本地学生学费"},
	{"international_student_tuition", "国际学生学费"},
	{"description", "简介"},
	{"ranking_qs_subject_2024", "QS专业2024排名"},
	{"majors_and_employment_direction", "专业及方向"},
	{"university_official_website", "学校官方网站"},
	{"course_requirement", "课程要求"},
	{"official_enrollment_score_range", "官方录取分数"},
	{"program_enrollment_number", "项目招收人数"},
	{"enrollment_language_requirement", "录取语言要求"},
	{"previous_suggested_enrollment_scoreline", "往年建议录取分数线"},
	{"last_year_condition_to_sophomore", "去年大一进入大二条件"},
	{"career_direction", "就业方向"},
	{"employment_rate", "就业率"},
	{"coop_opportunity", "带薪实习机会"},
	{"statistics", "employment_field_and_salary"},
	{"case_study", "案例"},
	{"characteristics", "项目特色"},
	{"others", "其他"},
}

// Fields returns the output keys of the kind in column order.
func (k Kind) Fields() []Field {
	if k == KindProgram {
		return programFields
	}
	return universityFields
}

func (k Kind) IDField() string {
	if k == KindProgram {
		return "program_id"
	}
	return "id_"
}

func (k Kind) NameField() string {
	if k == KindProgram {
		return "program_name"
	}
	return "university_name"
}

// identity reports keys the record carries outside of its attributes.
func (k Kind) identity(key string) bool {
	switch key {
	case k.IDField(), k.NameField():
		return true
	}
	return k == KindProgram && (key == "university_name" || key == "university_id")
}

// Valid reports whether `en` is an output key of the kind.
func (k Kind) Valid(en string) bool {
	for _, f := range k.Fields() {
		if f.EN == en {
			return true
		}
	}
	return false
}

// ToCH translates an English key, leaving unknown keys as they are.
func (k Kind) ToCH(en string) string {
	for _, f := range k.Fields() {
		if f.EN == en {
			return f.CH
		}
	}
	return en
}

// ToEN translates a Chinese key, leaving unknown keys as they are.
func (k Kind) ToEN(ch string) string {
	for _, f := range k.Fields() {
		if f.CH == ch {
			return f.EN
		}
	}
	return ch
}
