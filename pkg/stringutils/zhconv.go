// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import "strings"

// t2s maps the traditional ideographs that actually show up in release
// titles and alias tables to their simplified forms. A full OpenCC-style
// conversion (phrase-level, one-to-many) is overkill for title equality;
// character-level mapping is what the alias comparison needs.
var t2s = map[rune]rune{
	'動': '动', '畫': '画', '組': '组', '戰': '战', '國': '国', '龍': '龙',
	'與': '与', '愛': '爱', '樂': '乐', '灣': '湾', '醫': '医', '師': '师',
	'學': '学', '電': '电', '視': '视', '機': '机', '場': '场', '時': '时',
	'間': '间', '傳': '传', '說': '说', '記': '记', '風': '风', '雲': '云',
	'劍': '剑', '俠': '侠', '鬥': '斗', '後': '后', '來': '来', '東': '东',
	'車': '车', '馬': '马', '魚': '鱼', '鳥': '鸟', '島': '岛', '陽': '阳',
	'陰': '阴', '黃': '黄', '廣': '广', '門': '门', '問': '问', '開': '开',
	'關': '关', '長': '长', '飛': '飞', '華': '华', '萬': '万', '億': '亿',
	'數': '数', '頭': '头', '顏': '颜', '體': '体', '發': '发', '聲': '声',
	'歲': '岁', '舊': '旧', '舉': '举', '實': '实', '寶': '宝', '對': '对',
	'導': '导', '將': '将', '隊': '队', '陸': '陆', '際': '际', '區': '区',
	'圖': '图', '書': '书', '會': '会', '員': '员', '圓': '圆', '園': '园',
	'遠': '远', '運': '运', '過': '过', '還': '还', '這': '这', '進': '进',
	'連': '连', '週': '周', '遊': '游', '戲': '戏', '劇': '剧', '寫': '写',
	'觀': '观', '覺': '觉', '親': '亲', '計': '计', '話': '话', '語': '语',
	'誰': '谁', '請': '请', '讀': '读', '變': '变', '讓': '让', '貓': '猫',
	'貴': '贵', '買': '买', '賣': '卖', '紅': '红', '純': '纯', '紀': '纪',
	'結': '结', '給': '给', '絕': '绝', '續': '续', '維': '维', '綠': '绿',
	'網': '网', '羅': '罗', '義': '义', '習': '习', '聽': '听', '職': '职',
	'聯': '联', '離': '离', '難': '难', '雙': '双', '歡': '欢', '獸': '兽',
	'獵': '猎', '絲': '丝', '線': '线', '編': '编', '緣': '缘', '縣': '县',
	'總': '总', '聖': '圣', '勝': '胜', '處': '处', '號': '号', '異': '异',
	'當': '当', '畢': '毕', '盜': '盗', '監': '监', '祕': '秘', '禮': '礼',
	'種': '种', '窮': '穷', '競': '竞', '筆': '笔', '節': '节', '簡': '简',
	'類': '类', '終': '终', '經': '经',
}

// Simplified converts traditional Chinese characters in s to simplified.
// Characters without a mapping pass through unchanged.
func Simplified(s string) string {
	if !ContainsChinese(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := t2s[r]; ok {
			r = mapped
		}
		b.WriteRune(r)
	}
	return b.String()
}
